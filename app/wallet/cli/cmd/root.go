// Package cmd contains wallet app
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/HamaKinger/blockchain/business/web/errs"
	"github.com/HamaKinger/blockchain/foundation/keystore"
	"github.com/spf13/cobra"
)

var (
	walletPath string
	url        string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&walletPath, "wallet", "w", "zblock/miner1/wallet.json", "Path to the wallet file.")
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
}

var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Your simple utxo wallet",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openWallet() (*keystore.KeyStore, error) {
	return keystore.Open(walletPath)
}

// =============================================================================

// getJSON performs a GET against the node and decodes the response.
func getJSON(endpoint string, v any) error {
	resp, err := http.Get(url + endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp, v)
}

// decodeResponse decodes a successful response into v, or the node's
// error document into an error.
func decodeResponse(resp *http.Response, v any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		var er errs.Response
		if err := json.Unmarshal(body, &er); err != nil || er.Error == "" {
			return fmt.Errorf("node responded with status %d: %s", resp.StatusCode, body)
		}
		return fmt.Errorf("node responded with status %d: %s", resp.StatusCode, er.Error)
	}

	if v == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
