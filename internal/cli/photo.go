package cli

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ert-inspection/internal/common/errors"
	"ert-inspection/internal/models"
)

// maxImageBytes caps files read for photos and signatures.
const maxImageBytes = 8 << 20

func NewPhotoCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photo",
		Short: "Manage documentation photos",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <file|data-url>",
		Short: "Attach a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			dataURL, err := loadImage(args[0])
			if err != nil {
				return out.Error(err, nil)
			}
			w, err := opts.Env.Wizard(cmd.Context(), opts.Type)
			if err != nil {
				return out.Error(err, nil)
			}
			if err := w.AddPhoto(cmd.Context(), dataURL); err != nil {
				return out.Error(err, nil)
			}
			count, limit := len(w.Session().Photos), w.Definition().MaxPhotos
			return out.Success(map[string]int{"photos": count}, func(wr io.Writer) {
				fmt.Fprintf(wr, "Photo added, %d/%d\n", count, limit)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <n>",
		Short: "Remove the n-th photo (1-based)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return out.Error(errors.NewInvalidFieldError("photo", "photo number must be a number"), nil)
			}
			w, err := opts.Env.Wizard(cmd.Context(), opts.Type)
			if err != nil {
				return out.Error(err, nil)
			}
			if err := w.RemovePhoto(cmd.Context(), n-1); err != nil {
				return out.Error(err, nil)
			}
			count := len(w.Session().Photos)
			return out.Success(map[string]int{"photos": count}, func(wr io.Writer) {
				fmt.Fprintf(wr, "%d photos remaining\n", count)
			})
		},
	})

	return cmd
}

// NewSignCommand records a signer: inspect sign checked --name Rina --signature sig.png
func NewSignCommand(opts *RootOptions) *cobra.Command {
	var name, signature string

	cmd := &cobra.Command{
		Use:       "sign <known|checked>",
		Short:     "Set the acknowledging supervisor (known) or inspector (checked)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(models.RoleKnown), string(models.RoleChecked)},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			role := models.SignerRole(strings.ToLower(args[0]))

			var sig string
			if signature != "" {
				var err error
				if sig, err = loadImage(signature); err != nil {
					return out.Error(err, nil)
				}
			}

			w, err := opts.Env.Wizard(cmd.Context(), opts.Type)
			if err != nil {
				return out.Error(err, nil)
			}
			if err := w.SetSigner(cmd.Context(), role, name, sig); err != nil {
				return out.Error(err, nil)
			}
			signer := w.Session().Signer(role)
			view := signerView{Name: signer.Name, Signed: signer.Signature != ""}
			return out.Success(view, func(wr io.Writer) {
				fmt.Fprintf(wr, "%s: %s\n", role, signerLine(view))
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "signer name")
	cmd.Flags().StringVar(&signature, "signature", "", "signature image file or data URL")

	return cmd
}

// loadImage accepts a data URL as-is or reads an image file into one.
func loadImage(arg string) (string, error) {
	if strings.HasPrefix(arg, "data:") {
		return arg, nil
	}
	f, err := os.Open(arg)
	if err != nil {
		return "", errors.NewInvalidFieldError("image", fmt.Sprintf("cannot open %s: %v", arg, err))
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return "", errors.NewInvalidFieldError("image", fmt.Sprintf("cannot read %s: %v", arg, err))
	}
	if len(raw) > maxImageBytes {
		return "", errors.NewInvalidFieldError("image", "image is larger than 8 MB")
	}

	mime := http.DetectContentType(raw)
	if !strings.HasPrefix(mime, "image/") {
		return "", errors.NewInvalidFieldError("image", fmt.Sprintf("%s is not an image (%s)", arg, mime))
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}
