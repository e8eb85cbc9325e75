package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/robotalks/serialbridge/pkg/relay"
	"github.com/robotalks/serialbridge/pkg/relay/mqtt"
	wsrelay "github.com/robotalks/serialbridge/pkg/relay/websocket"
)

var (
	mqttURL    = "mqtt://localhost:1883/sb/"
	wsURL      string
	outputJSON bool
)

func init() {
	if val := os.Getenv("SB_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&wsURL, "ws", wsURL, "Websocket URL of a host, e.g. ws://host:8080/, instead of MQTT.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print records in JSON.")
}

func printRecord(topic string, rec *relay.Record) {
	if !outputJSON {
		log.Printf("%s: #%d @%s %v", topic, rec.Sequence, rec.DeviceTime, rec.Values)
		return
	}
	out, err := rec.MarshalJSON()
	if err != nil {
		log.Printf("%s: %v", topic, err)
		return
	}
	log.Printf("%s: %s", topic, out)
}

func monitorWebsocket() {
	conn, err := websocket.Dial(wsURL, "", "http://localhost/")
	if err != nil {
		log.Fatalln(err)
	}
	rw := wsrelay.New(conn)
	defer rw.Close()
	for {
		pkt, err := rw.ReadPacket()
		if err != nil {
			log.Fatalln(err)
		}
		log.Println(string(pkt))
	}
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	if wsURL != "" {
		monitorWebsocket()
		return
	}

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if err := mqtt.WaitToken(q.Connect(), 0); err != nil {
		log.Fatalln(err)
	}
	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/meta") {
			log.Printf("%s: %s", topic, string(payload))
			return
		}
		rec, err := relay.DecodeRecord(payload)
		if err != nil {
			log.Printf("%s: bad record: %v", topic, err)
			return
		}
		printRecord(topic, rec)
	}))
	<-(chan struct{})(nil)
}
