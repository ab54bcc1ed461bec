package handlers

import (
	"encoding/xml"
	"net/http"

	"github.com/vango-go/frontdesk/pkg/gateway/config"
)

type twimlParameter struct {
	XMLName xml.Name `xml:"Parameter"`
	Name    string   `xml:"name,attr"`
	Value   string   `xml:"value,attr"`
}

type twimlStream struct {
	XMLName    xml.Name `xml:"Stream"`
	URL        string   `xml:"url,attr"`
	Parameters []twimlParameter
}

type twimlConnect struct {
	XMLName xml.Name `xml:"Connect"`
	Stream  twimlStream
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Connect twimlConnect
}

// VoiceHandler answers the telephony voice webhook with instructions to
// connect the call's media stream to this gateway.
type VoiceHandler struct {
	Config config.Config
}

func (h VoiceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Twilio posts the caller number as From; carry it into the stream so
	// the session can key bookings to it.
	caller := r.FormValue("From")

	doc := twimlResponse{
		Connect: twimlConnect{
			Stream: twimlStream{URL: h.Config.StreamURL()},
		},
	}
	if caller != "" {
		doc.Connect.Stream.Parameters = []twimlParameter{{Name: "caller", Value: caller}}
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}
