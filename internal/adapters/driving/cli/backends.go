package cli

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List configured inference backends",
	Long: `Lists the configured inference backends in selection order,
most privileged first, with their access policy.`,
	Args: cobra.NoArgs,
	RunE: runBackends,
}

func init() {
	rootCmd.AddCommand(backendsCmd)
}

func runBackends(cmd *cobra.Command, _ []string) error {
	if svc.Registry == nil {
		return errors.New("backend registry not configured")
	}

	defaultName := svc.Registry.Default().Name
	for _, b := range svc.Registry.List() {
		marker := " "
		if b.Name == defaultName {
			marker = "*"
		}
		cmd.Printf("%s %s (priority %d)\n", marker, b.Name, b.Priority)
		cmd.Printf("    endpoint: %s\n", b.Endpoint)
		if b.Model != "" {
			cmd.Printf("    model: %s\n", b.Model)
		}
		if policy := policyLine(b); policy != "" {
			cmd.Printf("    policy: %s\n", policy)
		}
	}
	return nil
}

// policyLine summarises a backend's access policy for display.
func policyLine(b domain.BackendDescriptor) string {
	if b.TrustedServer {
		return "trusted server (no restrictions)"
	}
	var parts []string
	if len(b.AllowedACLLabels) > 0 {
		parts = append(parts, "acl="+strings.Join(b.AllowedACLLabels, ","))
	} else if b.TrustedForAllACL {
		parts = append(parts, "all acl")
	}
	if len(b.AllowedClassificationLabels) > 0 {
		parts = append(parts, "classification="+strings.Join(b.AllowedClassificationLabels, ","))
	}
	if b.AllowedDocLevel != nil {
		parts = append(parts, "doc-level<="+strconv.Itoa(*b.AllowedDocLevel))
	}
	return strings.Join(parts, " ")
}
