package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taoyao-code/gnss-gateway/internal/transport"
)

// listCmd 枚举本机可用串口
func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List serial ports on this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := transport.ListPorts()
			if err != nil {
				return fmt.Errorf("list serial ports: %w", err)
			}
			if len(ports) == 0 {
				fmt.Println("no serial ports found")
				return nil
			}
			for _, p := range ports {
				fmt.Println(p)
			}
			return nil
		},
	}
}
