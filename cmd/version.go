package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/receiptexporter/receiptexporter/internal/pkg/utils"
)

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			version := utils.GetVersion()

			fmt.Println("receiptexporter", version.Version)
			fmt.Println("- go/version:", version.GoVersion)
			if version.Module != "" {
				fmt.Println("- module:", version.Module)
			}
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "deps",
		Short: "Show the dependencies",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if info, ok := debug.ReadBuildInfo(); ok {
				for _, dep := range info.Deps {
					fmt.Printf("%s %s (%s)", dep.Path, dep.Version, dep.Sum)
					if dep.Replace != nil {
						fmt.Printf(" => %s %s (%s)\n", dep.Replace.Path, dep.Replace.Version, dep.Replace.Sum)
					} else {
						fmt.Print("\n")
					}
				}
			}
		},
	})

	return cmd
}
