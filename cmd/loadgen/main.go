// Command loadgen hammers a running server with concurrent stock
// additions for an assembled part and checks that stock accounting stays
// exact: only as many builds succeed as the scarcest raw part allows, and
// no quantity ever goes negative.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type partPayload struct {
	Name  string            `json:"name"`
	Type  string            `json:"type"`
	Parts []constituentSpec `json:"parts,omitempty"`
}

type constituentSpec struct {
	ID       string `json:"id"`
	Quantity int64  `json:"quantity"`
}

type partReply struct {
	ID       string `json:"id"`
	Quantity int64  `json:"quantity"`
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	requests := flag.Int("requests", 50, "concurrent build requests")
	buildable := flag.Int64("buildable", 20, "units the scarce raw part allows")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	// Seed a fresh BOM: bracket = 2 x screw + 1 x plate. Plate is the
	// scarce ingredient.
	screwID := createPart(client, *addr, partPayload{Name: "screw", Type: "RAW"})
	plateID := createPart(client, *addr, partPayload{Name: "plate", Type: "RAW"})
	bracketID := createPart(client, *addr, partPayload{
		Name: "bracket",
		Type: "ASSEMBLED",
		Parts: []constituentSpec{
			{ID: screwID, Quantity: 2},
			{ID: plateID, Quantity: 1},
		},
	})

	setQuantity(client, *addr, screwID, 2*int64(*requests))
	setQuantity(client, *addr, plateID, *buildable)

	var successCount, failCount atomic.Int64
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			body, _ := json.Marshal(map[string]any{
				"request_id": uuid.NewString(),
				"quantity":   1,
			})
			resp, err := client.Post(*addr+"/api/part/"+bracketID, "application/json", bytes.NewReader(body))
			if err != nil {
				failCount.Add(1)
				return
			}
			resp.Body.Close()

			if resp.StatusCode == http.StatusOK {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("=========== LOADGEN RESULTS ===========")
	fmt.Printf("Buildable Units:  %d\n", *buildable)
	fmt.Printf("Total Requests:   %d\n", *requests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=======================================")

	if success == *buildable && fail == int64(*requests)-*buildable {
		fmt.Printf("PASS: exactly %d builds succeeded\n", *buildable)
	} else {
		fmt.Printf("FAIL: expected %d success/%d fail, got %d/%d\n",
			*buildable, int64(*requests)-*buildable, success, fail)
	}

	plate := getPart(client, *addr, plateID)
	bracket := getPart(client, *addr, bracketID)
	fmt.Printf("Final plate quantity:   %d\n", plate.Quantity)
	fmt.Printf("Final bracket quantity: %d\n", bracket.Quantity)

	if plate.Quantity == 0 && bracket.Quantity == success {
		fmt.Println("PASS: stock conservation holds")
	} else {
		fmt.Println("FAIL: stock accounting mismatch")
	}
}

func createPart(client *http.Client, addr string, payload partPayload) string {
	body, _ := json.Marshal(payload)
	resp, err := client.Post(addr+"/api/part", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("create %s: %v", payload.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		log.Fatalf("create %s: unexpected status %d", payload.Name, resp.StatusCode)
	}

	var reply partReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		log.Fatalf("create %s: decode reply: %v", payload.Name, err)
	}
	return reply.ID
}

func setQuantity(client *http.Client, addr, partID string, quantity int64) {
	body, _ := json.Marshal(map[string]int64{"quantity": quantity})
	req, _ := http.NewRequest(http.MethodPatch, addr+"/api/part/"+partID+"/quantity", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("set quantity of %s: %v", partID, err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("set quantity of %s: unexpected status %d", partID, resp.StatusCode)
	}
}

func getPart(client *http.Client, addr, partID string) partReply {
	resp, err := client.Get(addr + "/api/part/" + partID)
	if err != nil {
		log.Fatalf("get %s: %v", partID, err)
	}
	defer resp.Body.Close()

	var reply partReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		log.Fatalf("get %s: decode reply: %v", partID, err)
	}
	return reply
}
