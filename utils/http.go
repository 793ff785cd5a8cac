// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by outbound callers (the quest API client).
var HTTPClient = &http.Client{
	Timeout: 15 * time.Second,
}
