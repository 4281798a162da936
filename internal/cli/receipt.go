package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/ogulcanaydogan/budget-guardian/pkg/receipt"
	"github.com/spf13/cobra"
)

var receiptCmd = &cobra.Command{
	Use:   "receipt",
	Short: "Extract purchase details from receipts",
}

var receiptScanCmd = &cobra.Command{
	Use:   "scan <file>",
	Short: "Scan a receipt image or OCR text file",
	Long: `Scan a receipt. Image files (png, jpg, webp, gif) go to the configured
vision model; anything else is read as OCR text. Results print as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runReceiptScan,
}

func init() {
	rootCmd.AddCommand(receiptCmd)
	receiptCmd.AddCommand(receiptScanCmd)
}

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true}

// ScanRequestForFile builds a scan request from a file's contents.
func ScanRequestForFile(path string, data []byte) receipt.ScanRequest {
	ext := strings.ToLower(filepath.Ext(path))
	if imageExts[ext] {
		return receipt.ScanRequest{
			ImageBase64: base64.StdEncoding.EncodeToString(data),
			ImageMIME:   mime.TypeByExtension(ext),
		}
	}
	return receipt.ScanRequest{Text: string(data)}
}

func runReceiptScan(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read receipt: %w", err)
	}

	a, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.Scanner.Scan(cmd.Context(), ScanRequestForFile(args[0], data))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
