// Mock wire-feed publisher for local development. It drives a small pool of
// devices and users around the Kathmandu depot so geofence and proximity
// paths light up without real hardware.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	depotLat = 27.7172
	depotLng = 85.3240
)

func randomDeviceID() string {
	return fmt.Sprintf("DEV-%04d", rand.Intn(10000))
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <interval_seconds>\n", os.Args[0])
		os.Exit(1)
	}

	intervalSec, err := strconv.Atoi(os.Args[1])
	if err != nil || intervalSec <= 0 {
		fmt.Fprintf(os.Stderr, "error: interval must be a positive integer\n")
		os.Exit(1)
	}

	broker := "tcp://localhost:1883"
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		broker = v
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("tracking-mock-publisher")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("mqtt connect: %v", token.Error())
	}
	defer client.Disconnect(250)

	devicePool := make([]string, 5)
	for i := range devicePool {
		devicePool[i] = randomDeviceID()
	}
	userPool := []string{"U-1001", "U-1002"}

	log.Printf("connected to %s, publishing every %ds...", broker, intervalSec)
	log.Printf("device pool: %v, user pool: %v", devicePool, userPool)

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		var topic string
		raw := map[string]any{
			"timestamp": time.Now().Unix(),
		}

		// one in four samples is a user, the rest vehicles
		if rand.Intn(4) == 0 {
			uid := userPool[rand.Intn(len(userPool))]
			raw["userId"] = uid
			topic = fmt.Sprintf("/tracking/user/%s/position", uid)
		} else {
			did := devicePool[rand.Intn(len(devicePool))]
			raw["deviceId"] = did
			raw["speed"] = rand.Float64() * 20
			topic = fmt.Sprintf("/tracking/vehicle/%s/position", did)
		}

		// half the samples drift near the depot, the rest roam the city
		if rand.Float64() < 0.5 {
			raw["latitude"] = depotLat + (rand.Float64()-0.5)*0.002
			raw["longitude"] = depotLng + (rand.Float64()-0.5)*0.002
		} else {
			raw["latitude"] = depotLat + (rand.Float64()-0.5)*0.1
			raw["longitude"] = depotLng + (rand.Float64()-0.5)*0.1
		}

		payload, _ := json.Marshal(raw)
		token := client.Publish(topic, 1, false, payload)
		token.Wait()

		log.Printf("published to %s: %s", topic, payload)
	}
}
