package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// runArchiveCommand implements `rtmsd archive <streamId>`: it fetches
// the archive manifest from a running daemon's admin endpoint and
// prints it. It performs no decoding or muxing of the underlying media
// itself — that is a separate, out-of-process concern.
func runArchiveCommand(args []string) int {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	addr := fs.String("addr", getEnv("RTMSD_ADDR", "http://127.0.0.1:8080"), "base address of a running rtmsd instance")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: rtmsd archive [-addr http://host:port] <streamId>")
		return 2
	}
	streamID := fs.Arg(0)

	client := &http.Client{Timeout: 10 * time.Second}
	url := fmt.Sprintf("%s/api/admin/streams/%s/archive", *addr, streamID)
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "archive: request failed: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "archive: failed to read response: %v\n", err)
		return 1
	}
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "archive: %s returned %s: %s\n", url, resp.Status, body)
		return 1
	}

	var pretty map[string]interface{}
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Fprintf(os.Stderr, "archive: malformed manifest: %v\n", err)
		return 1
	}
	encoded, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "archive: failed to format manifest: %v\n", err)
		return 1
	}
	fmt.Println(string(encoded))
	return 0
}
