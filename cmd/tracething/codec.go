package main

import (
	"fmt"
	"net/netip"
	"strconv"

	"github.com/cuemby/tracething/pkg/addr"
	"github.com/miekg/dns"
	"github.com/spf13/cobra"
)

var encodeCmd = &cobra.Command{
	Use:   "encode SLOT",
	Short: "Print the address and reverse name for a slot",
	Long: `Print the synthetic address and ip6.arpa name for a slot, chunk and
kind. Useful for walking a result by hand with dig.

Examples:
  # Origin name of slot 31
  tracething encode 31

  # Third chunk of slot 31
  tracething encode 31 --kind chunk --chunk 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 0, 16)
		if err != nil {
			return fmt.Errorf("invalid slot: %w", err)
		}
		chunk, _ := cmd.Flags().GetUint16("chunk")
		kindFlag, _ := cmd.Flags().GetString("kind")

		kind, err := parseKind(kindFlag)
		if err != nil {
			return err
		}

		codec, err := codecFromConfig(cmd)
		if err != nil {
			return err
		}

		q := addr.Query{Slot: uint16(id), Chunk: chunk, Kind: kind}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "AAAA answer:  %s\n", codec.EncodeAAAA(uint16(id)))
		fmt.Fprintf(out, "Address:      %s\n", codec.Address(q))
		fmt.Fprintf(out, "Reverse name: %s\n", codec.EncodeReverseName(q))
		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode NAME|ADDRESS",
	Short: "Decode a reverse name or IPv6 address into slot, chunk and kind",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if ip, err := netip.ParseAddr(name); err == nil {
			if !ip.Is6() {
				return fmt.Errorf("not an IPv6 address: %s", name)
			}
			name, _ = dns.ReverseAddr(ip.String())
		}

		q, err := addr.DecodeReverseName(dns.Fqdn(name))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Slot:  %d\n", q.Slot)
		fmt.Fprintf(out, "Chunk: %d\n", q.Chunk)
		fmt.Fprintf(out, "Kind:  %d (%s)\n", q.Kind, kindName(q.Kind))
		return nil
	},
}

func init() {
	encodeCmd.Flags().Uint16("chunk", 0, "Chunk index")
	encodeCmd.Flags().String("kind", "origin", "Record kind: origin or chunk")
	encodeCmd.Flags().String("base-prefix", "", "IPv6 base address (default: slots.base_prefix from config)")
}

func parseKind(s string) (addr.Kind, error) {
	switch s {
	case "origin", "1":
		return addr.KindOriginName, nil
	case "chunk", "2":
		return addr.KindChunk, nil
	}
	return 0, fmt.Errorf("unknown kind %q, want origin or chunk", s)
}

func kindName(k addr.Kind) string {
	switch k {
	case addr.KindOriginName:
		return "origin"
	case addr.KindChunk:
		return "chunk"
	}
	return "unknown"
}

func codecFromConfig(cmd *cobra.Command) (*addr.Codec, error) {
	base, _ := cmd.Flags().GetString("base-prefix")
	if base == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		base = cfg.Slots.BasePrefix
	}
	return addr.NewCodec(base)
}
