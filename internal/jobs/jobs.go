// Package jobs defines the JSON payloads carried on the RabbitMQ queues.
package jobs

// AnalyzeDocument asks the analysis worker to (re)analyze a document.
type AnalyzeDocument struct {
	DocumentID uint `json:"document_id"`
}

// Email is a rendered message waiting to be sent over SMTP.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}
