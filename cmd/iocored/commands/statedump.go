package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var statedumpAddr string

var statedumpCmd = &cobra.Command{
	Use:   "statedump",
	Short: "Fetch a statedump from a running iocored instance",
	Long: `Fetch the client registry, io-thread pool, and dentry lock
statedump from a running "iocored run" instance's metrics HTTP server
and print it as indented JSON.`,
	RunE: runStatedump,
}

func init() {
	statedumpCmd.Flags().StringVar(&statedumpAddr, "addr", "http://localhost:9090", "address of a running iocored's metrics server")
}

func runStatedump(cmd *cobra.Command, args []string) error {
	httpClient := &http.Client{Timeout: 5 * time.Second}

	resp, err := httpClient.Get(statedumpAddr + "/statedump")
	if err != nil {
		return fmt.Errorf("failed to reach iocored at %s: %w", statedumpAddr, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("iocored returned %s: %s", resp.Status, string(body))
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode statedump: %w", err)
	}

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(encoded))
	return nil
}
