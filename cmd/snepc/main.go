// Command snepc is a SNEP client CLI: it performs a single GET or PUT
// against a SNEP server (by default a local snepd simulated over
// transport/llcpsim) and prints the result.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nfctools/snep"
	"github.com/nfctools/snep/config"
	"github.com/nfctools/snep/ndef"
	"github.com/nfctools/snep/transport/llcpsim"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var dialAddr string

func main() {
	v := config.NewViper()

	rootCmd := &cobra.Command{
		Use:   "snepc",
		Short: "snepc performs a SNEP GET or PUT against a server",
	}
	rootCmd.PersistentFlags().StringVar(&dialAddr, "dial", "", "address to dial (default localhost:4478)")

	rootCmd.AddCommand(getCmd(v), putCmd(v))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "snepc:", err)
		os.Exit(1)
	}
}

func getCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "perform a SNEP GET and print the resulting NDEF text records",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer client.Close()

			records, err := client.GetRecords(cmd.Context(), nil)
			if err != nil {
				return fmt.Errorf("get: %w", err)
			}
			if records == nil {
				return fmt.Errorf("get: no response (transport failure or timeout)")
			}
			for _, r := range records {
				if _, text, ok := r.Text(); ok {
					fmt.Println(text)
					continue
				}
				fmt.Printf("record: tnf=%d type=%q bytes=%d\n", r.TNF, r.Type, len(r.Payload))
			}
			return nil
		},
	}
}

func putCmd(v *viper.Viper) *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "put",
		Short: "PUT a single NDEF text record to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer client.Close()

			ok, err := client.PutRecords(cmd.Context(), []ndef.Record{ndef.NewTextRecord("en", text)})
			if err != nil {
				return fmt.Errorf("put: %w", err)
			}
			if !ok {
				return fmt.Errorf("put: no response (transport failure or timeout)")
			}
			fmt.Println("ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "hello", "text to PUT")
	return cmd
}

func connect(ctx context.Context, v *viper.Viper) (*snep.Client, error) {
	if dialAddr != "" {
		v.Set("dial_addr", dialAddr)
	}
	cfg, err := config.LoadClient(v)
	if err != nil {
		return nil, err
	}

	client := snep.NewClientFromDialer(llcpsim.NewDialer(cfg.DialAddr))
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ok, err := client.Connect(dialCtx, cfg.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("connect: refused")
	}
	return client, nil
}
