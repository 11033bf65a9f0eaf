// ubxpoll 串口接收机调试工具
// 绕开网关进程直接打开串口，发送轮询帧并打印解码结果，
// 用于在把接收机写进网关配置前确认接线和波特率。
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// 构建期通过 -ldflags 注入
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ubxpoll",
		Short: "Poll GNSS receivers over a serial port",
		Long: `ubxpoll talks to a single receiver directly: it sends one poll frame
and prints the decoded reply. Useful for checking wiring and baud rate
before registering the receiver in the gateway config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		listCmd(),
		pollCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				fmt.Println(version)
				return
			}
			fmt.Printf("ubxpoll %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
			fmt.Printf("  go:     %s\n", runtime.Version())
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print version number only")
	return cmd
}
