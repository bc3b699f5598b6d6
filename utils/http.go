// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by outbound service calls (auth validation, profile sync).
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
