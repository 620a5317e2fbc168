package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avoran/svm64/pkg/asm"
	"github.com/avoran/svm64/pkg/config"
	"github.com/avoran/svm64/pkg/dis"
	"github.com/avoran/svm64/pkg/isa"
	"github.com/avoran/svm64/pkg/vm"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "svm64",
		Short: "svm64 — assembler, bytecode VM and disassembler",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML configuration file (default svm64.toml if present)")

	// asm command
	var asmVerbose bool
	var asmOutput string

	asmCmd := &cobra.Command{
		Use:   "asm [input.asm]",
		Short: "Assemble a source file into bytecode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			lines := strings.Split(string(source), "\n")

			var code []byte
			if asmVerbose {
				code, err = asm.AssembleVerbose(lines, cmd.OutOrStdout())
			} else {
				code, err = asm.Assemble(lines)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			output := asmOutput
			if output == "" {
				base := filepath.Base(args[0])
				output = strings.TrimSuffix(base, filepath.Ext(base)) + ".bc"
			}
			if err := os.WriteFile(output, code, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Written %d bytes to %s\n", len(code), output)
			return nil
		},
	}
	asmCmd.Flags().BoolVarP(&asmVerbose, "verbose", "v", false, "Print the statement listing while assembling")
	asmCmd.Flags().StringVarP(&asmOutput, "output", "o", "", "Output file path (default <stem>.bc)")

	// run command
	var runVerbose bool
	var memSize int

	runCmd := &cobra.Command{
		Use:   "run [input.bc]",
		Short: "Execute a bytecode file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Discover(configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("mem") {
				memSize = cfg.Memory
			}
			verbose := cfg.Verbose
			if cmd.Flags().Changed("verbose") {
				verbose = runVerbose
			}

			code, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			proc := vm.New(vm.Config{
				MemSize: memSize,
				Trace:   traceWriter(verbose),
			})
			status, err := proc.Execute(code)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			os.Exit(int(status))
			return nil
		},
	}
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Trace each instruction mnemonic to stderr")
	runCmd.Flags().IntVar(&memSize, "mem", 0, "VM memory capacity in bytes (default from config, else 1024)")

	// dis command
	disCmd := &cobra.Command{
		Use:   "dis [input.bc]",
		Short: "Disassemble a bytecode file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			lines, err := dis.Annotate(code)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Total bytes: %d\n", len(code))
			for _, line := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	// opcode command
	opcodeCmd := &cobra.Command{
		Use:   "opcode [byte...]",
		Short: "Look up opcode names by number",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				for _, arg := range args {
					name, err := opcodeName(arg)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s --> %s\n", arg, name)
				}
				return nil
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(cmd.OutOrStdout(), "Byte code: ")
				if !scanner.Scan() {
					fmt.Fprintln(cmd.OutOrStdout())
					return scanner.Err()
				}
				input := strings.TrimSpace(scanner.Text())
				if input == "" {
					continue
				}
				name, err := opcodeName(input)
				if err != nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Invalid byte code")
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), " --> %s\n", name)
			}
		},
	}

	rootCmd.AddCommand(asmCmd, runCmd, disCmd, opcodeCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func traceWriter(verbose bool) io.Writer {
	if verbose {
		return os.Stderr
	}
	return nil
}

// opcodeName parses an opcode number written as a Go integer literal
// (decimal, 0x hexadecimal, 0o or leading-0 octal, 0b binary) or, failing
// that, as bare hexadecimal, and returns its catalog name.
func opcodeName(s string) (string, error) {
	value, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		value, err = strconv.ParseUint(s, 16, 8)
	}
	if err != nil || value >= uint64(isa.OpCodeCount) {
		return "", fmt.Errorf("invalid byte code %q", s)
	}
	return isa.Names[value], nil
}
