package server

import (
	_ "embed"
)

// capturePage reads the token from the URL fragment, which never reaches the server,
// and posts it to the token endpoint next to the page.
//
//go:embed static/capture.html
var capturePage []byte
