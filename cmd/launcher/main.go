package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

// --- CONFIGURATION ---
const (
	NodeCount     = 20   // How many nodes to launch?
	StartHTTPPort = 8000 // Node 0 = 8000, Node 1 = 8001...
	StartPeerPort = 9000 // Node 0 = 9000, Node 1 = 9001...
	KeySpace      = 128
	Kay           = 4
	ProjectRoot   = "../../" // Path to the main.go file from here
)

var cmds []*exec.Cmd

type nodeStatus struct {
	NodeID string `json:"node_id"`
	IP     string `json:"ip"`
	Port   uint16 `json:"port"`
}

type peerRequest struct {
	ID   string `json:"id"`
	IP   string `json:"ip"`
	Port uint16 `json:"port"`
}

type peerResponse struct {
	Result string `json:"result"`
}

func main() {
	// 1. Get Absolute Path to main.go (so we can run it from anywhere)
	absRoot, _ := filepath.Abs(ProjectRoot)
	mainGoPath := filepath.Join(absRoot, "main.go")

	fmt.Printf("[Launcher] Target main.go: %s\n", mainGoPath)

	// 2. Clean up previous run
	os.RemoveAll("sim_data")

	// 3. Handle Ctrl+C to kill all nodes
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		stopAll()
		os.Exit(0)
	}()

	// 4. Launch nodes
	for i := 0; i < NodeCount; i++ {
		startNode(i, mainGoPath)
		time.Sleep(200 * time.Millisecond) // Stagger start
	}

	// 5. Wait for every HTTP API and learn the node ids
	statuses := make([]nodeStatus, NodeCount)
	for i := range statuses {
		st, err := waitForStatus(StartHTTPPort+i, 30*time.Second)
		if err != nil {
			fmt.Printf("[Launcher] node %d never came up: %v\n", i, err)
			stopAll()
			os.Exit(1)
		}
		statuses[i] = st
	}

	// 6. Introduce every node to every other node
	outcomes := map[string]int{}
	for i := range statuses {
		for j, peer := range statuses {
			if i == j {
				continue
			}
			result, err := introduce(StartHTTPPort+i, peer)
			if err != nil {
				fmt.Printf("[Launcher] node %d <- node %d: %v\n", i, j, err)
				continue
			}
			outcomes[result]++
		}
	}

	fmt.Printf("\n[Launcher] Network is running with %d nodes.\n", NodeCount)
	fmt.Printf("[Launcher] Peer introductions: %v\n", outcomes)
	fmt.Printf("Routing table of node 0: http://localhost:%d/routing-table\n", StartHTTPPort)
	fmt.Println("Check 'sim_data/node_N/node.log' for output.")
	fmt.Println("Press Ctrl+C to stop.")

	select {} // Block forever
}

func stopAll() {
	fmt.Println("\n[Launcher] Stopping all nodes...")
	for _, cmd := range cmds {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}
}

func startNode(id int, mainGoPath string) {
	httpPort := StartHTTPPort + id
	peerPort := StartPeerPort + id

	// Define the node's isolated workspace
	nodeDir := filepath.Join("sim_data", fmt.Sprintf("node_%d", id))
	if err := os.MkdirAll(nodeDir, 0755); err != nil {
		panic(err)
	}

	// go run main.go -port X -http Y -data DIR
	args := []string{
		"run",
		mainGoPath,
		"-port", strconv.Itoa(peerPort),
		"-http", strconv.Itoa(httpPort),
		"-data", ".",
		"-key-space", strconv.Itoa(KeySpace),
		"-kay", strconv.Itoa(Kay),
	}

	cmd := exec.Command("go", args...)
	cmd.Dir = nodeDir // Run INSIDE the node's folder (isolates private_key.hex)
	cmd.Env = append(os.Environ(), "LOG_LEVEL=debug")

	// Redirect Output to Log File
	logFile, _ := os.Create(filepath.Join(nodeDir, "node.log"))
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		panic(err)
	}

	cmds = append(cmds, cmd)
	fmt.Printf(" -> Node %d running (HTTP :%d / peer :%d)\n", id, httpPort, peerPort)
}

func waitForStatus(httpPort int, timeout time.Duration) (nodeStatus, error) {
	var st nodeStatus
	url := fmt.Sprintf("http://127.0.0.1:%d/status", httpPort)
	deadline := time.Now().Add(timeout)
	for {
		resp, err := http.Get(url)
		if err == nil {
			err = json.NewDecoder(resp.Body).Decode(&st)
			resp.Body.Close()
			if err == nil {
				return st, nil
			}
		}
		if time.Now().After(deadline) {
			return st, errors.Wrapf(err, "waiting for %s", url)
		}
		time.Sleep(250 * time.Millisecond)
	}
}

func introduce(httpPort int, peer nodeStatus) (string, error) {
	body, err := json.Marshal(peerRequest{ID: peer.NodeID, IP: peer.IP, Port: peer.Port})
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("http://127.0.0.1:%d/peers", httpPort)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "posting peer")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("%s returned %s", url, resp.Status)
	}

	var out peerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "decoding response")
	}
	return out.Result, nil
}
