package handlers

import (
	"log"
	"net/http"
)

// respondWithError shows the user a plain-text message and logs the
// underlying error. logMsg adds server-side detail; when empty the user
// message is logged instead, so no failure goes unrecorded.
func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		detail := logMsg
		if detail == "" {
			detail = userMsg
		}
		log.Printf("%s: %v", detail, err)
	}
	http.Error(w, userMsg, status)
}

// respondUpstreamError reports a failed call to the data API or the
// language model as a bad gateway, keeping the page message generic.
func respondUpstreamError(w http.ResponseWriter, userMsg string, err error) {
	respondWithError(w, http.StatusBadGateway, userMsg, "upstream call failed", err)
}
