package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/xraph/attest"
	"github.com/xraph/attest/batch"
	"github.com/xraph/attest/block"
	"github.com/xraph/attest/digest"
	"github.com/xraph/attest/health"
	"github.com/xraph/attest/id"
)

var (
	errChainInvalid = errors.New("chain integrity violated")
	errUnhealthy    = errors.New("ledger unhealthy")
)

func (c *cli) appendCmd() *cobra.Command {
	var (
		recordType string
		recordID   string
		owner      string
		payload    string
		file       string
		ref        string
		meta       map[string]string
	)

	cmd := &cobra.Command{
		Use:   "append",
		Short: "Fingerprint a record and append it to the chain",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readPayload(payload, file)
			if err != nil {
				return err
			}

			if recordID == "" {
				recordID = id.NewRecordID().String()
			}

			l, closeFn, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			b, err := l.AppendWithRetry(cmd.Context(), attest.AppendRequest{
				Payload:       data,
				RecordType:    block.RecordType(recordType),
				RecordID:      recordID,
				OwnerID:       owner,
				DataReference: ref,
				Metadata:      meta,
			})
			if err != nil {
				return err
			}

			pterm.Success.Printfln("appended block %d", b.Index)
			return renderBlock(b)
		},
	}

	f := cmd.Flags()
	f.StringVar(&recordType, "type", string(block.RecordMedicalTreatment), "record type")
	f.StringVar(&recordID, "id", "", "record id (generated rec_ TypeID when empty)")
	f.StringVar(&owner, "owner", "", "owner id")
	f.StringVar(&payload, "payload", "", "payload bytes")
	f.StringVar(&file, "file", "", "read payload from file ('-' for stdin)")
	f.StringVar(&ref, "ref", "", "off-chain data reference URI")
	f.StringToStringVar(&meta, "meta", nil, "metadata key=value pairs")
	_ = cmd.MarkFlagRequired("owner")
	cmd.MarkFlagsMutuallyExclusive("payload", "file")
	return cmd
}

func (c *cli) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify the whole chain from genesis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, closeFn, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := l.VerifyChain(cmd.Context())
			if err != nil {
				return err
			}
			if v := res.Violation(); v != nil {
				pterm.Error.Printfln("chain invalid at block %d: %s (%d of %d blocks passed)",
					v.Index, v.Kind, res.Checked, res.Length)
				return errChainInvalid
			}
			pterm.Success.Printfln("chain valid: %d blocks", res.Length)
			return nil
		},
	}
}

func (c *cli) showCmd() *cobra.Command {
	var (
		hash  string
		index uint64
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a block by hash or index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, closeFn, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			var b *block.Block
			if cmd.Flags().Changed("hash") {
				h, err := digest.Parse(hash)
				if err != nil {
					return err
				}
				b, err = l.VerifyByHash(cmd.Context(), h)
				if err != nil {
					return err
				}
			} else {
				b, err = l.BlockAt(cmd.Context(), index)
				if err != nil {
					return err
				}
			}

			if err := l.VerifyBlock(b); err != nil {
				pterm.Warning.Printfln("block %d fails its own checks: %v", b.Index, err)
			}
			return renderBlock(b)
		},
	}

	cmd.Flags().StringVar(&hash, "hash", "", "block hash (hex)")
	cmd.Flags().Uint64Var(&index, "index", 0, "block index")
	cmd.MarkFlagsOneRequired("hash", "index")
	cmd.MarkFlagsMutuallyExclusive("hash", "index")
	return cmd
}

func (c *cli) batchCmd() *cobra.Command {
	var (
		recordsPath string
		from        string
		to          string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Commit a JSONL file of audit records as one batch block",
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := parseWindowTime(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			end, err := parseWindowTime(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			f, err := os.Open(recordsPath)
			if err != nil {
				return err
			}
			defer f.Close()

			records, err := readRecords(f)
			if err != nil {
				return err
			}

			l, closeFn, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			b, err := batch.New(l).CommitBatch(cmd.Context(), records, start, end)
			if err != nil {
				return err
			}
			if b == nil {
				pterm.Info.Println("no records in window, nothing committed")
				return nil
			}
			pterm.Success.Printfln("committed %d records as block %d", len(records), b.Index)
			return renderBlock(b)
		},
	}

	f := cmd.Flags()
	f.StringVar(&recordsPath, "records", "", "JSONL file of records")
	f.StringVar(&from, "from", "", "window start (RFC 3339 or YYYY-MM-DD)")
	f.StringVar(&to, "to", "", "window end (RFC 3339 or YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("records")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func (c *cli) healthCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the ledger is reachable, valid and optionally writable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, closeFn, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			writeCheck := c.cfg.WriteCheck
			if cmd.Flags().Changed("write") {
				writeCheck = write
			}
			rep := health.New(l, health.WithWriteCheck(writeCheck)).Check(cmd.Context())

			data := pterm.TableData{
				{"check", "result"},
				{"reachable", strconv.FormatBool(rep.ChainReachable)},
				{"valid", strconv.FormatBool(rep.ChainValid)},
				{"length", strconv.FormatUint(rep.ChainLength, 10)},
				{"duration", rep.Duration.String()},
			}
			if rep.WriteChecked {
				data = append(data, []string{"writable", strconv.FormatBool(rep.Writable)})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
				return err
			}
			for _, e := range rep.Errors {
				pterm.Error.Println(e)
			}

			if !rep.Healthy() {
				return errUnhealthy
			}
			pterm.Success.Println("healthy")
			return nil
		},
	}

	cmd.Flags().BoolVar(&write, "write", false, "append a synthetic probe block")
	return cmd
}

func readPayload(payload, file string) ([]byte, error) {
	switch file {
	case "":
		return []byte(payload), nil
	case "-":
		return io.ReadAll(os.Stdin)
	default:
		return os.ReadFile(file)
	}
}

// readRecords decodes one ExternalRecord per non-empty line.
func readRecords(r io.Reader) ([]batch.ExternalRecord, error) {
	var out []batch.ExternalRecord
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec batch.ExternalRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("records line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return out, nil
}

func parseWindowTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

func renderBlock(b *block.Block) error {
	data := pterm.TableData{
		{"field", "value"},
		{"index", strconv.FormatUint(b.Index, 10)},
		{"record_type", string(b.RecordType)},
		{"record_id", b.RecordID},
		{"owner_id", b.OwnerID},
		{"timestamp", b.Timestamp.Format(time.RFC3339Nano)},
		{"data_hash", b.DataHash.Hex()},
		{"previous_hash", b.PreviousHash.Hex()},
		{"block_hash", b.BlockHash.Hex()},
	}
	if b.DataReference != "" {
		data = append(data, []string{"data_reference", b.DataReference})
	}
	for _, k := range b.Metadata.Keys() {
		data = append(data, []string{"meta." + k, b.Metadata[k]})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
