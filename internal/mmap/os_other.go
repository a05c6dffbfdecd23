//go:build !unix && !windows

package mmap

func osMapAnon(int) ([]byte, error) {
	return nil, ErrUnsupported
}

func osUnmap([]byte) error {
	return ErrUnsupported
}
