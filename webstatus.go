/*
Copyright © 2026 the resflow authors.
This file is part of resflow.

resflow is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

resflow is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with resflow.  If not, see <http://www.gnu.org/licenses/>.
*/
package resflow

import (
	"encoding/json"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// StatusServer serves a minimal live-status page over HTTP, grounded on
// the teacher's webserver.go: one template-rendered index page plus a
// websocket endpoint that pushes the current step, time and each domain's
// name, total_vol and z_srf to every connected client as they change.
type StatusServer struct {
	sim *Simulation
	log *logrus.Entry

	mu      sync.Mutex
	clients map[*websocket.Conn]bool

	upgrader websocket.Upgrader
	tmpl     *template.Template
}

const statusPageTemplate = `<!doctype html>
<html><head><title>resflow status</title></head>
<body>
<h1>resflow</h1>
<p>step <span id="step">0</span>, t=<span id="time">0</span>s</p>
<table id="domains"></table>
<script>
var ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = function(ev) {
  var msg = JSON.parse(ev.data);
  document.getElementById("step").textContent = msg.step;
  document.getElementById("time").textContent = msg.time;
  var rows = msg.domains.map(function(d) {
    return "<tr><td>" + d.name + "</td><td>" + d.total_vol + "</td><td>" + d.z_srf + "</td></tr>";
  });
  document.getElementById("domains").innerHTML = rows.join("");
};
</script>
</body></html>`

// statusMessage is the JSON payload pushed to every websocket client
// once per step.
type statusMessage struct {
	Step    int              `json:"step"`
	Time    float64          `json:"time"`
	Domains []domainStatus   `json:"domains"`
}

type domainStatus struct {
	Name     string  `json:"name"`
	TotalVol float64 `json:"total_vol"`
	ZSrf     float64 `json:"z_srf"`
}

// NewStatusServer builds a StatusServer for the given simulation.
func NewStatusServer(sim *Simulation, log *logrus.Entry) *StatusServer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &StatusServer{
		sim:      sim,
		log:      log,
		clients:  make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		tmpl:     template.Must(template.New("status").Parse(statusPageTemplate)),
	}
}

// Handler returns the http.Handler serving the index page and websocket
// endpoint, for use with http.ListenAndServe or in tests via httptest.
func (s *StatusServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if err := s.tmpl.Execute(w, nil); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	mux.HandleFunc("/ws", s.serveWS)
	return mux
}

func (s *StatusServer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("status websocket upgrade failed")
		return
	}
	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast pushes the current step's state to every connected client.
// Intended to be called once per step after Step(s) returns.
func (s *StatusServer) Broadcast() {
	msg := statusMessage{Step: s.sim.Step, Time: s.sim.Time}
	for _, d := range s.sim.Doms {
		msg.Domains = append(msg.Domains, domainStatus{Name: d.Name, TotalVol: d.TotalVol, ZSrf: d.ZSrf})
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.WithError(err).Warn("status broadcast marshal failed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}
