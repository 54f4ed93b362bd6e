package ops

import (
	"os"
	"path/filepath"
)

// fixPerms makes every regular file in the installation's bin/ executable.
// Zip archives in particular tend to lose the mode bits.
func fixPerms(path string) error {
	ents, err := os.ReadDir(filepath.Join(path, "bin"))
	if err != nil {
		return nil
	}

	for _, ent := range ents {
		if !ent.Type().IsRegular() {
			continue
		}

		fi, err := ent.Info()
		if err != nil {
			return err
		}

		cur := fi.Mode().Perm()

		if cur&0111 != 0111 {
			err := os.Chmod(filepath.Join(path, "bin", ent.Name()), cur|0111)
			if err != nil {
				return err
			}
		}
	}

	return nil
}
