package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gkatanacio/mirror-downloader/download"
	"github.com/gkatanacio/mirror-downloader/resource"
)

var verifyArgs struct {
	descriptor string
	file       string
}

var verifyCmd = &cobra.Command{
	Use:     "verify",
	Short:   "Check a downloaded file against its descriptor.",
	Example: "./mdl verify -d resource.yaml -f resource.bin",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(cmd)
		if err != nil {
			return err
		}
		defer log.Close()

		desc, err := resource.LoadFile(verifyArgs.descriptor)
		if err != nil {
			return err
		}

		validator := download.NewValidator(cfg.Download.VerifyWorkers)
		if err := validator.Validate(cmd.Context(), verifyArgs.file, desc); err != nil {
			log.Error("%s: %v", verifyArgs.file, err)
			return err
		}

		fmt.Println("OK:", verifyArgs.file)

		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyArgs.descriptor, "descriptor", "d", "", "resource descriptor file (YAML)")
	verifyCmd.Flags().StringVarP(&verifyArgs.file, "file", "f", "", "file to verify")

	verifyCmd.MarkFlagRequired("descriptor")
	verifyCmd.MarkFlagRequired("file")
}
