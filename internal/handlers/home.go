package handlers

import "net/http"

// RenderIndex serves the public landing page.
func RenderIndex(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, r, "index", nil)
}
