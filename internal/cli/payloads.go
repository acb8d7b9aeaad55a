package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/daryltucker/page-cycler/internal/assets"
	"github.com/daryltucker/page-cycler/internal/output"
)

var payloadsDir string

var payloadsCmd = &cobra.Command{
	Use:   "payloads",
	Short: "Manage the in-page instrumentation scripts",
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Write the embedded instrumentation scripts to a directory",
	Long: `Writes the scripts injected into every measured page, so a page set can
include them directly when it is loaded outside the page cycler.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		output.Logger.Info("Installing payloads...", "target", payloadsDir)

		if err := os.MkdirAll(payloadsDir, 0755); err != nil {
			return fmt.Errorf("failed to create target directory %s: %w", payloadsDir, err)
		}

		entries, err := fs.ReadDir(assets.Payloads, "payloads")
		if err != nil {
			return fmt.Errorf("failed to read embedded payloads: %w", err)
		}

		count := 0
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}

			content, err := assets.Payload(entry.Name())
			if err != nil {
				output.Logger.Error("Failed to read embedded file", "file", entry.Name(), "error", err)
				continue
			}

			targetPath := filepath.Join(payloadsDir, entry.Name())
			if err := os.WriteFile(targetPath, []byte(content), 0644); err != nil {
				output.Logger.Error("Failed to write to target", "path", targetPath, "error", err)
				continue
			}

			output.Logger.Info("Installed payload", "name", entry.Name())
			count++
		}

		output.Logger.Info("Installation Complete", "total_files", count)
		return nil
	},
}

func init() {
	installCmd.Flags().StringVar(&payloadsDir, "dir", "payloads", "Target directory")
	payloadsCmd.AddCommand(installCmd)
	rootCmd.AddCommand(payloadsCmd)
}
