package cmd

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/table"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakcron/NXTools/keyset"
	"github.com/jakcron/NXTools/logger"
	"github.com/jakcron/NXTools/nca"
	"github.com/jakcron/NXTools/npdm"
	"github.com/jakcron/NXTools/pfs"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify <file...>",
	Short: "Decrypt, parse and verify one or more NCA archives",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cc *cobra.Command, args []string) error {
		return runVerify(args)
	},
}

func runVerify(paths []string) error {
	log := logger.GetSugar("", *debug)

	ks, err := keyset.Load(*keysPath)
	if err != nil {
		return fmt.Errorf("loading keyset: %w", err)
	}

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = "."
	}
	cache, err := openVerdictCache(filepath.Join(cacheDir, "ncatool"))
	if err != nil {
		log.Warnf("verdict cache unavailable: %v", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	bar := progressbar.New(len(paths))
	defer bar.Finish()

	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleColoredBright)
	tbl.AppendHeader(table.Row{"File", "Content Type", "Sig Main", "Sig ACID", "Partition 0", "Partition 1", "Partition 2", "Partition 3"})

	exitCode := 0
	for _, path := range paths {
		row, err := verifyOne(path, ks, cache, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			exitCode = 1
		} else {
			tbl.AppendRow(row)
		}
		bar.Add(1)
	}
	tbl.Render()

	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

func verifyOne(path string, ks *nca.Keyset, cache *verdictCache, log *zap.SugaredLogger) (table.Row, error) {
	source, err := nca.OpenFileSource(path)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	headerBuf := make([]byte, 0xC00)
	if err := source.ReadAt(headerBuf, 0); err != nil {
		return nil, err
	}
	fileHash := fmt.Sprintf("%x", sha256.Sum256(headerBuf))

	if cache != nil {
		if v, found, _ := cache.Get(fileHash); found {
			return table.Row{filepath.Base(path), "(cached)", v.SignatureMain, v.SignatureAcid,
				v.PartitionFail[0], v.PartitionFail[1], v.PartitionFail[2], v.PartitionFail[3]}, nil
		}
	}

	archive, err := nca.Process(source, ks, nil, nil, true, nca.Collaborators{
		OpenPfs:   openPfsCollaborator,
		ParseNpdm: parseNpdmCollaborator,
	}, log)
	if err != nil {
		return nil, err
	}

	verdict := Verdict{FileName: filepath.Base(path), SignatureMain: archive.SignatureMain.Verified}
	if archive.SignatureAcid.Verified {
		verdict.SignatureAcid = "ok"
	} else if archive.SignatureAcid.Warning != "" {
		verdict.SignatureAcid = archive.SignatureAcid.Warning
	}
	for i, p := range archive.Partitions {
		verdict.PartitionFail[i] = p.FailReason
	}
	if cache != nil {
		if err := cache.Put(fileHash, verdict); err != nil {
			log.Warnf("failed to cache verdict for %s: %v", path, err)
		}
	}

	return table.Row{
		verdict.FileName, archive.MainHeader.ContentType.String(),
		verdict.SignatureMain, verdict.SignatureAcid,
		verdict.PartitionFail[0], verdict.PartitionFail[1], verdict.PartitionFail[2], verdict.PartitionFail[3],
	}, nil
}

func openPfsCollaborator(source nca.ByteSource) (nca.PfsReader, error) {
	return pfs.Open(source)
}

func parseNpdmCollaborator(source nca.ByteSource) (nca.NpdmAcidKeyReader, error) {
	return npdm.Parse(source)
}
