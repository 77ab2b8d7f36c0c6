package manifestsrv

// News is the template model for the news endpoint. The launcher shows the
// body as plain text.
type News struct {
	Title     string
	Version   string
	Published string

	// Optional free text appended after the header block.
	Message string
}

// Content is what the server publishes. Token is a signed manifest.
type Content struct {
	Token string
	News  News
}
