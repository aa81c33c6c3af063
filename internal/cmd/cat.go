package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jakcron/NXTools/keyset"
	"github.com/jakcron/NXTools/logger"
	"github.com/jakcron/NXTools/nca"
)

func init() {
	rootCmd.AddCommand(catCmd)
}

var catCmd = &cobra.Command{
	Use:   "cat <file> <partition-index>",
	Short: "Stream a decrypted, verified partition to stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cc *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid partition index %q", args[1])
		}
		return runCat(args[0], index)
	},
}

// streamChunkSize bounds how much of a partition's decrypted bytes cat
// buffers per write to stdout.
const streamChunkSize = 1 << 20

func runCat(path string, index int) error {
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

	if index < 0 || index >= len(archive.Partitions) {
		return fmt.Errorf("partition index out of range")
	}
	partition := archive.Partitions[index]
	if partition.Reader == nil {
		return fmt.Errorf("partition %d is not readable: %s", index, partition.FailReason)
	}

	buf := make([]byte, streamChunkSize)
	var offset int64
	for offset < partition.Reader.Size() {
		n := int64(len(buf))
		if remaining := partition.Reader.Size() - offset; remaining < n {
			n = remaining
		}
		if err := partition.Reader.ReadAt(buf[:n], offset); err != nil {
			return err
		}
		if _, err := os.Stdout.Write(buf[:n]); err != nil {
			return err
		}
		offset += n
	}
	return nil
}
