package ingest

// IngestionResult is the per-file outcome of collecting inputs.
type IngestionResult struct {
	SourcePath   string
	HashHex      string
	FileExt      string
	Deduplicated bool
	Err          string
}

// DirStats summarizes a collection pass.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Options controls which files are accepted.
type Options struct {
	SkipHidden     bool
	SkipDuplicates bool                // drop files whose content was already seen
	AllowedExts    map[string]struct{} // lowercased sans '.'; nil -> default set
}
