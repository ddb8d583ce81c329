package config

import (
	"github.com/pkg/errors"
	"source.quilibrium.com/quilibrium/monorepo/timelock/pkg/core/iqc"
	"source.quilibrium.com/quilibrium/monorepo/timelock/pkg/vdf"
)

type VDFConfig struct {
	// Construction names the default VDF construction for new records.
	Construction          string `yaml:"construction"`
	DiscriminantBits      uint32 `yaml:"discriminantBits"`
	RSAModulusBits        uint32 `yaml:"rsaModulusBits"`
	DiscriminantCacheSize int    `yaml:"discriminantCacheSize"`
	// SealerKeyId is the signing key used to attest records. Records are left
	// unsigned when empty.
	SealerKeyId   string `yaml:"sealerKeyId"`
	VerifyWorkers int    `yaml:"verifyWorkers"`
}

func DefaultVDFConfig() *VDFConfig {
	return &VDFConfig{
		Construction:          vdf.DefaultConstruction,
		DiscriminantBits:      vdf.DefaultDiscriminantBits,
		RSAModulusBits:        vdf.DefaultRSAModulusBits,
		DiscriminantCacheSize: vdf.DefaultCacheSize,
		SealerKeyId:           "default-sealer-key",
		VerifyWorkers:         4,
	}
}

// Validate checks that the configured construction exists and sizes are
// usable.
func (c *VDFConfig) Validate() error {
	known := false
	for _, name := range vdf.Constructions() {
		if name == c.Construction {
			known = true
		}
	}

	if !known {
		return errors.Wrapf(vdf.ErrUnknownConstruction, "vdf config: %s", c.Construction)
	}

	if c.DiscriminantBits < iqc.MinDiscriminantLength || c.RSAModulusBits < vdf.MinRSAModulusBits {
		return errors.Wrap(vdf.ErrInvalidParams, "vdf config: bit lengths")
	}

	return nil
}
