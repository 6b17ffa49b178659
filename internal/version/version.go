// Package version хранит данные сборки, заполняемые через -ldflags.
package version

import "fmt"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GetVersion возвращает версию сборки для health-ответов.
func GetVersion() string { return version }

// String возвращает строку для стартового лога.
func String() string {
	return fmt.Sprintf("oms-history version=%s commit=%s date=%s", version, commit, date)
}
