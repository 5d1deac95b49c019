package setup

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tphakala/sentinel-go/internal/conf"
	"golang.org/x/crypto/bcrypt"
)

// Command creates the setup command. It provisions the pairing key and,
// on request, a fresh NFC tag credential.
func Command(settings *conf.Settings) *cobra.Command {
	var provisionTag bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Provision pairing key and NFC credentials",
		Long:  "Generate a new pairing key, optionally provision an NFC tag credential, and write both to the configuration file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(settings, provisionTag)
		},
	}

	if err := setupFlags(cmd, &provisionTag); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, provisionTag *bool) error {
	cmd.Flags().BoolVar(provisionTag, "nfc-tag", false, "Also provision a new NFC tag credential")
	return viper.BindPFlags(cmd.Flags())
}

// runSetup rotates the pairing key. Rotating the key also unbinds the
// current owner so the next /init can pair a fresh address.
func runSetup(settings *conf.Settings, provisionTag bool) error {
	pairingKey, err := conf.GenerateKey(conf.PairingKeyLength)
	if err != nil {
		return fmt.Errorf("generating pairing key: %w", err)
	}
	settings.Security.PairingKey = pairingKey
	settings.SetOwnerAddress("")

	var credential string
	if provisionTag {
		credential, err = conf.GenerateKey(conf.NFCCredentialLength)
		if err != nil {
			return fmt.Errorf("generating NFC credential: %w", err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing NFC credential: %w", err)
		}
		settings.Security.NFCCredentialHash = string(hash)
	}

	if err := conf.SaveSecuritySettings(settings); err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}

	fmt.Println("Setup complete.")
	fmt.Printf("Pair the owner by sending: /init %s\n", pairingKey)
	if provisionTag {
		fmt.Println("Write the following credential to the NFC tag now, it is not stored in clear text:")
		fmt.Println(credential)
	}
	return nil
}
