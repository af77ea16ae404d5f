package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

const ExportRoot = "exports"

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildExportPath returns the object key for a result of schemaName exported
// at the given time: exports/<schema>/date=YYYY-MM-DD/result-<unixnano>.parquet.
func BuildExportPath(schemaName string, at time.Time) (string, error) {
	if err := validatePathComponent(schemaName, "schema name"); err != nil {
		return "", err
	}
	ts := at.UTC()
	return path.Join(
		ExportRoot,
		schemaName,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("result-%d.parquet", ts.UnixNano()),
	), nil
}

// ValidateExportPath accepts only keys produced by BuildExportPath.
func ValidateExportPath(key string) error {
	parts := strings.Split(key, "/")
	if len(parts) != 4 || parts[0] != ExportRoot {
		return fmt.Errorf("invalid export key: %q", key)
	}
	if err := validatePathComponent(parts[1], "schema name"); err != nil {
		return err
	}
	if !strings.HasPrefix(parts[2], "date=") || !strings.HasPrefix(parts[3], "result-") || !strings.HasSuffix(parts[3], ".parquet") {
		return fmt.Errorf("invalid export key: %q", key)
	}
	return nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
