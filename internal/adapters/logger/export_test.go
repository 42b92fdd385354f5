// export_test.go exports private functions for white-box testing.
package logger

var (
	CollectErrorEntriesExported = collectErrorEntries
	FormatErrorEntriesExported  = formatErrorEntries
	FormatErrorExported         = formatError
)
