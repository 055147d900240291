package session

import "encoding/json"

// statusDocument is the server-list ping response body.
type statusDocument struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int32  `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int `json:"max"`
		Online int `json:"online"`
	} `json:"players"`
	Description struct {
		Text string `json:"text"`
	} `json:"description"`
}

func statusJSON(s Settings, online int) string {
	var doc statusDocument
	doc.Version.Name = s.ServerVersion
	doc.Version.Protocol = s.ProtocolVersion
	doc.Players.Max = s.MaxPlayers
	doc.Players.Online = online
	doc.Description.Text = s.Motd

	data, err := json.Marshal(doc)
	if err != nil {
		return `{"description":{"text":""}}`
	}
	return string(data)
}

// chatText wraps plain text in a minimal chat-JSON document.
func chatText(text string) string {
	data, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return `{"text":""}`
	}
	return string(data)
}
