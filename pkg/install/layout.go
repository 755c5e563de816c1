package install

import (
	"github.com/nixstall/nixstall/pkg/nixcfg"
	"github.com/nixstall/nixstall/pkg/storage"
)

// layout is what the partition descriptors imply for boot and encryption
// handling.
type layout struct {
	rootIsEncrypted bool
	bootIsPartition bool
	bootIsEncrypted bool

	// swapDevices are claimed encrypted swap partitions needing explicit
	// initrd declarations.
	swapDevices []nixcfg.LuksMapping

	// keyfileParts are the claimed LUKS partitions that get registered
	// against the boot keyfile, in descriptor order.
	keyfileParts []storage.Partition
}

func analyzeLayout(parts []storage.Partition) layout {
	var l layout
	for _, part := range parts {
		switch part.MountPoint {
		case "/":
			l.rootIsEncrypted = part.IsLuks()
		case "/boot":
			l.bootIsPartition = true
			l.bootIsEncrypted = part.IsLuks()
		}

		if part.Claimed && part.IsLuks() && part.Device != "" {
			l.keyfileParts = append(l.keyfileParts, part)
			if part.FS == "linuxswap" {
				l.swapDevices = append(l.swapDevices, nixcfg.LuksMapping{
					MapperName: part.LuksMapperName,
					UUID:       part.UUID,
				})
			}
		}
	}
	return l
}

// needsKeyfile reports whether the GRUB cryptodisk keyfile setup applies:
// BIOS firmware with an encrypted /boot, or an encrypted / without a
// separate /boot.
func (l layout) needsKeyfile(firmwareType string) bool {
	if firmwareType == "efi" {
		return false
	}
	return (l.bootIsPartition && l.bootIsEncrypted) ||
		(l.rootIsEncrypted && !l.bootIsPartition)
}

// keyFileMappers lists the mapper names that receive keyFile lines.
func (l layout) keyFileMappers() []string {
	mappers := make([]string, 0, len(l.keyfileParts))
	for _, part := range l.keyfileParts {
		mappers = append(mappers, part.LuksMapperName)
	}
	return mappers
}
