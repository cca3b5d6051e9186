package streaming

import (
	"io"
	"sync"
)

const minBufferSize = 4 * 1024

var bufferPools sync.Map // int -> *sync.Pool

func bufferPool(size int) *sync.Pool {
	if p, ok := bufferPools.Load(size); ok {
		return p.(*sync.Pool)
	}
	p, _ := bufferPools.LoadOrStore(size, &sync.Pool{
		New: func() any {
			buf := make([]byte, size)
			return &buf
		},
	})
	return p.(*sync.Pool)
}

// Copy moves src to dst through a pooled buffer of chunkSize bytes. Unlike
// io.Copy it never hands dst a slice larger than chunkSize, because it does
// not defer to ReaderFrom or WriterTo.
func Copy(dst io.Writer, src io.Reader, chunkSize int) (int64, error) {
	if chunkSize < minBufferSize {
		chunkSize = minBufferSize
	}

	pool := bufferPool(chunkSize)
	bufp := pool.Get().(*[]byte)
	defer pool.Put(bufp)
	buf := *bufp

	var written int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
