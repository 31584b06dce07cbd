package driven

// TextSplitter cuts text into overlapping windows for embedding.
type TextSplitter interface {
	// Split returns the windows in order. Empty input yields no windows.
	Split(text string) []string
}
