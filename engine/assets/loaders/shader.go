package loaders

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/vulkanmc/engine/resources"
)

// ShaderLoader reads a compiled SPIR-V module and hands it out as 32-bit words.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string, assetType resources.ResourceType, params interface{}) (*resources.Resource, error) {
	if assetType != resources.ResourceTypeShader {
		return nil, errors.Newf("shader loader cannot load %s resources", assetType)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading shader %s", path)
	}
	code, err := bytesToBytecode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", path)
	}
	return &resources.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     resources.ResourceTypeShader,
		DataSize: uint64(len(data)),
		Data:     code,
	}, nil
}

func (sl *ShaderLoader) Unload(r *resources.Resource) error {
	if r == nil {
		return errors.New("cannot unload a nil resource")
	}
	r.Data = nil
	r.DataSize = 0
	return nil
}

// bytesToBytecode converts a little-endian SPIR-V blob into words after
// checking its size and magic number.
func bytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Newf("SPIR-V size %d is not a positive multiple of 4", len(b))
	}
	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	if byteCode[0] != resources.SPIRVMagic {
		return nil, errors.Newf("bad SPIR-V magic number 0x%08x", byteCode[0])
	}
	return byteCode, nil
}
