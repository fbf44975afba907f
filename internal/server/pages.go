package server

import (
	"fmt"
	"html"
	"net/http"
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>%[1]s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: %[2]s; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%[1]s</h1>
        <p>%[3]s</p>
    </div>
</body>
</html>
`

func writeSuccessPage(w http.ResponseWriter) {
	writePage(w, http.StatusOK, "Authorization Successful", "#1DB954", "You can close this window and return to the terminal.")
}

func writeFailurePage(w http.ResponseWriter, status int, reason string) {
	writePage(w, status, "Authorization Failed", "#E22134", html.EscapeString(reason))
}

func writePage(w http.ResponseWriter, status int, title, color, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, pageTemplate, title, color, body)
}
