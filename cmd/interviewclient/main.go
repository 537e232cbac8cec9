// Command interviewclient drives a full mock interview against a
// running server: it starts an interview over REST, attaches to the
// websocket event stream, plays a scripted conversation as room
// frames, pushes a code update, hangs up and polls for the evaluation.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/anishjha12309/itero/internal/transport/mock"
)

type frame struct {
	Type        string          `json:"type"`
	Participant string          `json:"participant,omitempty"`
	Segments    []segment       `json:"segments,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Identities  []string        `json:"identities,omitempty"`
	Enabled     bool            `json:"enabled,omitempty"`
}

type segment struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

func main() {
	serverURL := flag.String("server", "http://localhost:8000", "API server base URL")
	turnDelay := flag.Duration("delay", 300*time.Millisecond, "Delay between conversation turns")
	flag.Parse()

	base := strings.TrimRight(*serverURL, "/")

	// Start an interview.
	var start struct {
		SessionID string `json:"sessionId"`
		Problem   struct {
			Name string `json:"name"`
		} `json:"problem"`
	}
	postJSON(base+"/v1/interviews", "", &start)
	log.Printf("Started interview %s: %q", start.SessionID, start.Problem.Name)

	// Attach the event stream.
	wsURL, err := url.Parse(base)
	if err != nil {
		log.Fatalf("Bad server URL: %v", err)
	}
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = "/v1/interviews/" + start.SessionID + "/events"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		log.Fatalf("Failed to attach event stream: %v", err)
	}

	// Log what the pipeline pushes back: microphone control, code sync
	// acknowledgements and nudges.
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var f frame
			if err := json.Unmarshal(data, &f); err != nil {
				continue
			}
			switch f.Type {
			case "microphone":
				log.Printf("<- microphone enabled=%v", f.Enabled)
			case "data":
				log.Printf("<- data %s", f.Payload)
			}
		}
	}()

	send := func(f frame) {
		data, err := json.Marshal(f)
		if err != nil {
			log.Fatalf("Failed to marshal frame: %v", err)
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Fatalf("Failed to send frame: %v", err)
		}
	}

	// Play the scripted conversation. Each utterance arrives the way a
	// real room delivers it: speaker start, a final transcription
	// segment, a mirrored data-channel transcription, speaker stop.
	speak := func(identity, role, text string, seq int) {
		send(frame{Type: "speakers", Identities: []string{identity}})
		send(frame{Type: "segments", Participant: identity, Segments: []segment{
			{ID: fmt.Sprintf("client-seg-%d", seq), Text: text, Final: true},
		}})
		mirror, _ := json.Marshal(map[string]string{
			"type": "transcription", "text": text, "role": role,
		})
		send(frame{Type: "data", Payload: mirror})
		send(frame{Type: "speakers"})
		time.Sleep(*turnDelay)
	}

	seq := 0
	for i, exchange := range mock.DefaultExchanges {
		seq++
		speak("agent-sim", "assistant", exchange.Agent, seq)
		seq++
		speak("candidate-sim", "user", exchange.Candidate, seq)

		// Push a code update halfway through, as the editor would.
		if i == len(mock.DefaultExchanges)/2 {
			code := "function twoSum(nums, target) {\n  const seen = new Map();\n}"
			postJSONMethod(http.MethodPut,
				base+"/v1/interviews/"+start.SessionID+"/code",
				fmt.Sprintf(`{"code":%q}`, code), nil)
			log.Printf("-> code update (%d bytes)", len(code))
		}
	}

	// Hang up. The server finalizes the interview from its own copy of
	// the transcript.
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(5*time.Second))
	_ = conn.Close()
	log.Println("Hung up, waiting for evaluation...")

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(base + "/v1/interviews/" + start.SessionID + "/evaluation")
		if err != nil {
			log.Fatalf("Failed to poll evaluation: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			log.Printf("Evaluation: %s", body)
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Fatal("Evaluation never became ready")
}

func postJSON(url, body string, out any) {
	postJSONMethod(http.MethodPost, url, body, out)
}

func postJSONMethod(method, url, body string, out any) {
	req, err := http.NewRequest(method, url, bytes.NewReader([]byte(body)))
	if err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Request %s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		log.Fatalf("%s %s returned %d: %s", method, url, resp.StatusCode, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			log.Fatalf("Failed to decode response: %v", err)
		}
	}
}
