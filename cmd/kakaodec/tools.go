package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"edb-forensics/internal/domain"
	"edb-forensics/internal/edbcrypto"
)

// deriveCmd は識別情報から鍵素材を導出して表示するコマンド。
func deriveCmd() *cobra.Command {
	var fp domain.SystemFingerprint
	var userID string
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive pragma, key and IV from an identity triple and account",
		RunE: func(cmd *cobra.Command, args []string) error {
			pragma, err := edbcrypto.DerivePragma(fp)
			if err != nil {
				return err
			}
			km, err := edbcrypto.DeriveKeyMaterial(pragma, userID)
			if err != nil {
				return err
			}

			if output == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"pragma": pragma,
					"key":    hex.EncodeToString(km.Key[:]),
					"iv":     hex.EncodeToString(km.IV[:]),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pragma: %s\n", pragma)
			fmt.Fprintf(out, "key:    %s\n", hex.EncodeToString(km.Key[:]))
			fmt.Fprintf(out, "iv:     %s\n", hex.EncodeToString(km.IV[:]))
			return nil
		},
	}
	cmd.Flags().StringVar(&fp.UUID, "uuid", "", "System UUID (required)")
	cmd.Flags().StringVar(&fp.ModelName, "model", "", "Storage device model (required)")
	cmd.Flags().StringVar(&fp.SerialNumber, "serial", "", "Storage device serial (required)")
	cmd.Flags().StringVar(&userID, "user", "", "Account email or phone number (required)")
	cmd.MarkFlagRequired("uuid")
	cmd.MarkFlagRequired("model")
	cmd.MarkFlagRequired("serial")
	cmd.MarkFlagRequired("user")
	return cmd
}

// fixtureCmd は平文SQLiteから検証用の暗号化ファイルを作るコマンド。
func fixtureCmd() *cobra.Command {
	var in, out, keyHex, ivHex, mode string
	cmd := &cobra.Command{
		Use:   "fixture",
		Short: "Encrypt a plain SQLite database into a test artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			km, err := parseKeyMaterial(keyHex, ivHex)
			if err != nil {
				return err
			}
			plain, err := os.ReadFile(in)
			if err != nil {
				return fmt.Errorf("reading %s: %w", in, err)
			}
			if !edbcrypto.HasSQLiteHeader(plain) {
				return fmt.Errorf("%s is not a SQLite database", in)
			}

			var ct []byte
			switch mode {
			case "chunked":
				ct, err = edbcrypto.EncryptChunked(plain, km)
			case "continuous":
				ct, err = edbcrypto.EncryptContinuous(plain, km)
			default:
				return fmt.Errorf("--mode must be chunked or continuous, got %q", mode)
			}
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, ct, 0o600); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes, %s)\n", out, len(ct), mode)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "Plain SQLite database (required)")
	cmd.Flags().StringVar(&out, "out", "", "Output artifact path (required)")
	cmd.Flags().StringVar(&keyHex, "key", "", "AES-128 key as 32 hex characters (required)")
	cmd.Flags().StringVar(&ivHex, "iv", "", "IV as 32 hex characters (default: derived from key)")
	cmd.Flags().StringVar(&mode, "mode", "chunked", "Cipher layout: chunked, continuous")
	cmd.MarkFlagRequired("in")
	cmd.MarkFlagRequired("out")
	cmd.MarkFlagRequired("key")
	return cmd
}

// parseKeyMaterial は16進の鍵とIVを読む。IVが空なら鍵から導く。
func parseKeyMaterial(keyHex, ivHex string) (domain.KeyMaterial, error) {
	var km domain.KeyMaterial
	if err := decodeBlock(keyHex, km.Key[:]); err != nil {
		return km, fmt.Errorf("--key: %w", err)
	}
	if ivHex == "" {
		km.IV = edbcrypto.IVFromKey(km.Key)
		return km, nil
	}
	if err := decodeBlock(ivHex, km.IV[:]); err != nil {
		return km, fmt.Errorf("--iv: %w", err)
	}
	return km, nil
}

func decodeBlock(s string, dst []byte) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != domain.BlockSize {
		return fmt.Errorf("want %d bytes, got %d", domain.BlockSize, len(b))
	}
	copy(dst, b)
	return nil
}

// statusCmd は稼働中のサーバーから進捗を取得するコマンド。
func statusCmd() *cobra.Command {
	var apiURL string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show analysis progress from a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiURL == "" {
				apiURL = os.Getenv("KAKAODEC_API_URL")
			}
			if apiURL == "" {
				return fmt.Errorf("--api-url is required (or set KAKAODEC_API_URL)")
			}

			client := &http.Client{Timeout: timeout}
			resp, err := client.Get(apiURL + "/v1/progress")
			if err != nil {
				return fmt.Errorf("API request failed: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("reading response: %w", err)
			}
			if resp.StatusCode != http.StatusOK {
				return handleErrorResponse(resp.StatusCode, body)
			}

			if output == "json" {
				fmt.Fprintln(cmd.OutOrStdout(), string(body))
				return nil
			}
			var p domain.AnalysisProgress
			if err := json.Unmarshal(body, &p); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			state := "idle"
			if p.IsRunning {
				state = "running"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s %d%% %s (candidates: %d)\n", state, p.StepLabel, p.Percent, p.Message, p.CandidatesFound)
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "", "API endpoint URL (or set KAKAODEC_API_URL)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	return cmd
}

func handleErrorResponse(statusCode int, body []byte) error {
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&errResp); err == nil && errResp.Message != "" {
		return fmt.Errorf("server error: %s", errResp.Message)
	}
	return fmt.Errorf("server returned status %d", statusCode)
}
