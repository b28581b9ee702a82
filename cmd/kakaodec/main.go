// Package main はEDB解析CLIのエントリポイント。
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"edb-forensics/config"
	"edb-forensics/internal/app"
	"edb-forensics/internal/domain"
	"edb-forensics/internal/infra"
	"edb-forensics/internal/middleware"
)

const version = "1.0.0"

var (
	output string
	cfg    *config.Config
	tp     *sdktrace.TracerProvider
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kakaodec",
		Short:         "Forensic decryption tool for KakaoTalk chatLogs_<id>.edb files",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg = config.Load()

			var err error
			tp, err = infra.InitTracer(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initializing tracer: %w", err)
			}
			// 標準出力は結果に使うのでログは標準エラーへ
			infra.SetupLogger(cfg, true)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if tp == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				slog.Error("failed to shutdown tracer", "error", err)
			}
		},
	}

	// グローバルフラグ
	rootCmd.PersistentFlags().StringVar(&output, "output", "text", "Output format: text, json")

	// サブコマンド登録
	rootCmd.AddCommand(decryptCmd())
	rootCmd.AddCommand(discoverCmd())
	rootCmd.AddCommand(rowCmd())
	rootCmd.AddCommand(locateCmd())
	rootCmd.AddCommand(userIDCmd())
	rootCmd.AddCommand(deriveCmd())
	rootCmd.AddCommand(fixtureCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

// versionCmd はバージョン情報を表示する。
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kakaodec version %s\n", version)
		},
	}
}

// withApp は依存関係を組み立ててfnを実行し、終了時に閉じる。
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.ErrorContext(ctx, "failed to close application", "error", err)
		}
	}()
	return fn(ctx, a)
}

// resolveUser は--user未指定ならlogin_listのIDを使う。
func resolveUser(ctx context.Context, a *app.App, userID string) (string, error) {
	if userID != "" {
		return userID, nil
	}
	id, err := a.LoginList.UserID(ctx)
	if err != nil {
		return "", fmt.Errorf("--user not given and login list unusable: %w", err)
	}
	return id, nil
}

// decryptCmd は主経路での復号コマンド。
func decryptCmd() *cobra.Command {
	var file, userID string
	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt an artifact with the key derived from this machine's identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				artifact := filepath.Base(file)
				user, err := resolveUser(ctx, a, userID)
				if err != nil {
					middleware.WriteAuditLog(ctx, "DECRYPT", artifact, userID, middleware.ResultFailed)
					return err
				}

				msgs, err := a.Service.DecryptFull(ctx, file, user)
				if err != nil {
					middleware.WriteAuditLog(ctx, "DECRYPT", artifact, user, middleware.ResultFailed)
					return err
				}
				result := middleware.ResultSuccess
				if len(msgs) == 0 {
					result = middleware.ResultEmpty
				}
				middleware.WriteAuditLog(ctx, "DECRYPT", artifact, user, result)
				return printMessages(cmd.OutOrStdout(), msgs)
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Path to chatLogs_<id>.edb (required)")
	cmd.Flags().StringVar(&userID, "user", "", "Account email or phone number (default: login_list.dat)")
	cmd.MarkFlagRequired("file")
	return cmd
}

// discoverCmd は鍵候補探索コマンド。
func discoverCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Trial-decrypt an artifact with every known key candidate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				artifact := filepath.Base(file)
				result, err := a.Service.Discover(ctx, file)
				if err != nil {
					middleware.WriteAuditLog(ctx, "DISCOVER", artifact, "", middleware.ResultFailed)
					return err
				}
				middleware.WriteAuditLog(ctx, "DISCOVER", artifact, "", middleware.ResultSuccess)

				if output == "json" {
					return writeJSON(cmd.OutOrStdout(), map[string]any{
						"source":      result.Candidate.Source,
						"confidence":  result.Candidate.Confidence,
						"attempts":    result.Attempts,
						"stored_keys": result.StoredKeys,
						"messages":    result.Messages,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Validated candidate from %s (confidence %d) after %d attempt(s)\n",
					result.Candidate.Source, result.Candidate.Confidence, result.Attempts)
				if result.StoredKeys > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Case store holds %d validated key(s) for %s\n", result.StoredKeys, artifact)
				}
				return printMessages(cmd.OutOrStdout(), result.Messages)
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Path to chatLogs_<id>.edb (required)")
	cmd.MarkFlagRequired("file")
	return cmd
}

// rowCmd は行単位の暗号文を試行復号するコマンド。
func rowCmd() *cobra.Command {
	var blobHex string
	cmd := &cobra.Command{
		Use:   "row",
		Short: "Trial-decrypt a single encrypted message column",
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := hex.DecodeString(blobHex)
			if err != nil {
				return fmt.Errorf("--hex must be hex encoded: %w", err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				result, err := a.Service.DecryptRow(ctx, blob)
				if err != nil {
					return err
				}
				if output == "json" {
					return writeJSON(cmd.OutOrStdout(), map[string]any{
						"text":     result.Text,
						"source":   result.Candidate.Source,
						"attempts": result.Attempts,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), result.Text)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&blobHex, "hex", "", "Ciphertext as hex (required)")
	cmd.MarkFlagRequired("hex")
	return cmd
}

// locateCmd はユーザーの暗号化ファイル探索コマンド。
func locateCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Find chatLogs_<id>.edb files for an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				user, err := resolveUser(ctx, a, userID)
				if err != nil {
					return err
				}
				artifacts, err := a.Service.Locate(ctx, user)
				if err != nil {
					return err
				}
				if output == "json" {
					return writeJSON(cmd.OutOrStdout(), artifacts)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "PATH\tSIZE")
				for _, art := range artifacts {
					fmt.Fprintf(w, "%s\t%d\n", art.Path, art.ByteSize)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Account email or phone number (default: login_list.dat)")
	return cmd
}

// userIDCmd はlogin_listのユーザーID表示コマンド。
func userIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "userid",
		Short: "Print the active account from login_list.dat",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				id, err := a.LoginList.UserID(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
}

func printMessages(w io.Writer, msgs []domain.ExtractedMessage) error {
	if output == "json" {
		return writeJSON(w, msgs)
	}
	if len(msgs) == 0 {
		fmt.Fprintln(w, "No messages extracted (the derived key is probably wrong; try discover)")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tSENDER\tTYPE\tCONTENT")
	for _, m := range msgs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", m.ID, formatTimestamp(m.Timestamp), m.Sender, m.MessageType, m.Content)
	}
	return tw.Flush()
}

func formatTimestamp(ts int64) string {
	if ts <= 0 {
		return "-"
	}
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
