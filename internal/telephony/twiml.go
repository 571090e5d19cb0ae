package telephony

import (
	"encoding/xml"
	"fmt"
)

// TwiML document types. Only the verbs the call engine emits are
// modeled; Twilio ignores unknown whitespace but not unknown verbs.

type twimlResponse struct {
	XMLName xml.Name      `xml:"Response"`
	Say     *twimlSay     `xml:"Say,omitempty"`
	Reject  *twimlReject  `xml:"Reject,omitempty"`
	Connect *twimlConnect `xml:"Connect,omitempty"`
	Dial    *twimlDial    `xml:"Dial,omitempty"`
	Hangup  *struct{}     `xml:"Hangup,omitempty"`
}

type twimlSay struct {
	Text string `xml:",chardata"`
}

type twimlReject struct {
	Reason string `xml:"reason,attr,omitempty"`
}

type twimlConnect struct {
	Stream twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL        string           `xml:"url,attr"`
	Parameters []twimlParameter `xml:"Parameter,omitempty"`
}

type twimlParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type twimlDial struct {
	Number string `xml:",chardata"`
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

func render(doc twimlResponse) string {
	out, err := xml.Marshal(doc)
	if err != nil {
		// The document types above cannot fail to marshal.
		panic(fmt.Sprintf("telephony: twiml marshal: %v", err))
	}
	return xmlHeader + string(out)
}

// ConnectStreamTwiML opens a bidirectional media stream to url. The
// caller/dialed numbers travel as custom parameters so the stream
// handler can resolve the tenant even without query parameters.
func ConnectStreamTwiML(url, from, to string) string {
	return render(twimlResponse{
		Connect: &twimlConnect{
			Stream: twimlStream{
				URL: url,
				Parameters: []twimlParameter{
					{Name: "from", Value: from},
					{Name: "to", Value: to},
				},
			},
		},
	})
}

// RejectTwiML declines the call without answering.
func RejectTwiML(reason string) string {
	return render(twimlResponse{Reject: &twimlReject{Reason: reason}})
}

// SayHangupTwiML speaks a message and disconnects. Used when a call can
// be answered but not served, so the caller never hears a silent drop.
func SayHangupTwiML(message string) string {
	return render(twimlResponse{Say: &twimlSay{Text: message}, Hangup: &struct{}{}})
}

// DialTwiML hands the live call off to another phone number.
func DialTwiML(number string) string {
	return render(twimlResponse{Dial: &twimlDial{Number: number}})
}
