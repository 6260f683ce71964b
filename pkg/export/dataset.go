package export

// Dataset defines tabular export content shared by all renderers.
type Dataset struct {
	// Name labels the artifact (sheet name, PDF title fallback).
	Name    string
	Headers []string
	Rows    []map[string]string
}
