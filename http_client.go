package main

import (
	"net/http"
	"time"
)

const defaultExternalHTTPTimeout = 30 * time.Second

// externalHTTPClient is shared by every outbound HTTP call (Reddit, OpenAI).
// Config validation adjusts its timeout once at startup.
var externalHTTPClient = &http.Client{Timeout: defaultExternalHTTPTimeout}
