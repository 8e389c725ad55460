// Package atomicwrite escribe archivos de forma atómica. Lo usa el seatstore
// de filesystem: un snapshot de seat nunca queda escrito a medias.
package atomicwrite

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// AtomicWriteFile escribe data en path vía un archivo temporal en el mismo
// directorio: write, fsync, close, chmod y rename. Un lector concurrente ve
// el contenido viejo o el nuevo, nunca una mezcla.
//
// En Windows os.Rename falla si el destino existe o está bloqueado; en ese
// caso se intenta remove seguido de rename. El orden importa: remover recién
// después de que el rename directo falló preserva el archivo viejo si todo
// sale mal.
func AtomicWriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	// CreateTemp evita colisiones entre escrituras concurrentes del mismo
	// snapshot.
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}

	// Permisos antes del rename, para que el archivo nunca exista en el
	// destino con el modo del temporal.
	_ = os.Chmod(tmpPath, perm)

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(path)
		if err2 := os.Rename(tmpPath, path); err2 != nil {
			return fmt.Errorf("rename: %v (after remove: %v)", err, err2)
		}
	}

	return nil
}
