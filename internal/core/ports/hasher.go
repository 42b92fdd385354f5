package ports

// Hasher defines the interface for computing content hashes.
//
//go:generate mockgen -destination=mocks/hasher_mock.go -package=mocks -source=hasher.go
type Hasher interface {
	// HashBytes hashes the parts as one NUL separated sequence.
	HashBytes(parts ...[]byte) string
	// HashStrings hashes the parts as one NUL separated sequence.
	HashStrings(parts ...string) string
	// HashFile hashes the content of the file at path.
	HashFile(path string) (string, error)
}
