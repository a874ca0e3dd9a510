package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/gkatanacio/mirror-downloader/download"
	"github.com/gkatanacio/mirror-downloader/resource"
	"github.com/gkatanacio/mirror-downloader/transport"
)

var downloadArgs struct {
	descriptor string
	destFile   string
	plain      bool
}

var downloadCmd = &cobra.Command{
	Use:     "download",
	Short:   "Download the resource described by a descriptor file, resuming any verified progress.",
	Example: "./mdl download -d resource.yaml -f resource.bin",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(cmd)
		if err != nil {
			return err
		}
		defer log.Close()

		desc, err := resource.LoadFile(downloadArgs.descriptor)
		if err != nil {
			return err
		}

		opts := cfg.DownloadOptions()
		opts.Logger = log

		if cfg.Progress {
			bar := progressbar.DefaultBytes(desc.Size, "downloading")
			defer bar.Finish()
			opts.Progress = func(downloaded, _ int64) {
				bar.Set64(downloaded)
			}
		}

		httpTransport := transport.NewHTTPTransport(cfg.TransportOptions())

		var d download.Downloader
		if downloadArgs.plain || !desc.HasChunks() {
			d, err = download.NewPlainDownloader(downloadArgs.destFile, desc, httpTransport, opts)
		} else {
			d, err = download.NewChunkedDownloader(downloadArgs.destFile, desc, httpTransport, opts)
		}
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := d.Download(ctx); err != nil {
			return err
		}

		fmt.Printf("\nDownload complete: %s (%s)\n", downloadArgs.destFile, humanize.Bytes(uint64(desc.Size)))

		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadArgs.descriptor, "descriptor", "d", "", "resource descriptor file (YAML)")
	downloadCmd.Flags().StringVarP(&downloadArgs.destFile, "file", "f", "", "destination file path")
	downloadCmd.Flags().BoolVar(&downloadArgs.plain, "plain", false, "validate only once the download is complete, even with a chunk manifest")

	downloadCmd.Flags().Duration("timeout", 0, "timeout for each request")
	downloadCmd.Flags().Int("retry-budget", 0, "max number of attempts across all mirrors")
	downloadCmd.Flags().Duration("retry-delay", 0, "pause after every mirror failed once")
	downloadCmd.Flags().Int("buffer-size", 0, "read buffer size in bytes")
	downloadCmd.Flags().Int("workers", 0, "max number of goroutines hashing existing chunks")
	downloadCmd.Flags().Bool("insecure", false, "skip TLS certificate verification")
	downloadCmd.Flags().Bool("progress", true, "show a progress bar")

	downloadCmd.MarkFlagRequired("descriptor")
	downloadCmd.MarkFlagRequired("file")
}
