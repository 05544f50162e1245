package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/palisade-http/palisade/internal/domain/auth"
)

var hashKeySHA256 bool

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key [api-key]",
	Short: "Generate a hash for an API key",
	Long: `Generate a hash of an API key for use in config.

By default the key is hashed with Argon2id (PHC string output). Pass
--sha256 for the cheaper "sha256:<hex>" format, suitable when the keys
themselves are high-entropy random strings.

Either format can be used in the metrics.keys config field.

Example:
  palisade hash-key "my-secret-api-key"
  # Output: $argon2id$v=19$m=48128,t=1,p=1$...

Security note: The key will appear in shell history.
Consider clearing history after use or using an environment variable:
  palisade hash-key "$MY_API_KEY"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		if hashKeySHA256 {
			fmt.Println(auth.HashKey(key))
			return nil
		}
		hash, err := auth.HashKeyArgon2id(key)
		if err != nil {
			return fmt.Errorf("failed to hash key: %w", err)
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	hashKeyCmd.Flags().BoolVar(&hashKeySHA256, "sha256", false, "emit sha256:<hex> instead of Argon2id")
	rootCmd.AddCommand(hashKeyCmd)
}
