package domain

// CacheEntry is the persisted transform result of one module.
type CacheEntry struct {
	ID           string       `json:"id"`
	ContentHash  string       `json:"content_hash"`
	Fingerprint  string       `json:"fingerprint"`
	Output       []byte       `json:"output"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
	Transforms   []string     `json:"transforms,omitempty"`
	Asset        *AssetRef    `json:"asset,omitempty"`
	HotAccept    bool         `json:"hot_accept,omitzero"`
}

// Fresh reports whether the entry was produced from the given source and
// transform configuration.
func (e *CacheEntry) Fresh(contentHash, fingerprint string) bool {
	return e != nil && e.ContentHash == contentHash && e.Fingerprint == fingerprint
}
