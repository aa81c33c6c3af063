package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakcron/NXTools/keyset"
	"github.com/jakcron/NXTools/logger"
	"github.com/jakcron/NXTools/nca"
)

func init() {
	rootCmd.AddCommand(dumpCmd)
}

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print header fields of an NCA archive without verifying signatures",
	Args:  cobra.ExactArgs(1),
	RunE: func(cc *cobra.Command, args []string) error {
		return runDump(args[0])
	},
}

func runDump(path string) error {
	log := logger.GetSugar("", *debug)

	ks, err := keyset.Load(*keysPath)
	if err != nil {
		return fmt.Errorf("loading keyset: %w", err)
	}

	source, err := nca.OpenFileSource(path)
	if err != nil {
		return err
	}
	defer source.Close()

	archive, err := nca.Process(source, ks, nil, nil, false, nca.Collaborators{}, log)
	if err != nil {
		return err
	}

	h := archive.MainHeader
	fmt.Printf("Magic:            %s\n", h.Magic)
	fmt.Printf("Distribution:     %s\n", h.Distribution)
	fmt.Printf("Content type:     %s\n", h.ContentType)
	fmt.Printf("Key generation:   %d (master key rev %d)\n", h.KeyGeneration1, h.MasterKeyRev())
	fmt.Printf("KAEK index:       %s\n", h.KaekIndexField)
	fmt.Printf("Content size:     0x%x\n", h.ContentSize)
	fmt.Printf("Program ID:       0x%016x\n", h.ProgramID)
	fmt.Printf("Content index:    %d\n", h.ContentIndex)
	fmt.Printf("SDK addon ver:    %s\n", h.SdkAddonVersion)
	fmt.Printf("Rights ID:        %x\n", h.RightsID)
	fmt.Println()

	for i, p := range archive.Partitions {
		if p.FailReason == "not present" {
			continue
		}
		fmt.Printf("Partition %d: format=%s hash=%s encryption=%s", i, p.Format, p.Hash, p.Encryption)
		if p.FailReason != "" {
			fmt.Printf(" FAILED(%s)", p.FailReason)
		}
		fmt.Println()
	}
	return nil
}
