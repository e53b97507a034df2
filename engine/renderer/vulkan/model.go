package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

// Model is an immutable vertex list uploaded once to device-local memory and drawn
// as a triangle list.
type Model struct {
	vertexBuffer *Buffer
	vertexCount  uint32
}

// NewModel uploads vertexCount vertices packed in data. Fewer than three vertices
// cannot form a triangle and are rejected.
func NewModel(device *Device, data []byte, vertexCount uint32) (*Model, error) {
	if vertexCount < 3 {
		return nil, errors.Newf("vertex count must be at least 3, got %d", vertexCount)
	}
	if len(data) == 0 || uint32(len(data))%vertexCount != 0 {
		return nil, errors.Newf("%d bytes do not hold %d whole vertices", len(data), vertexCount)
	}
	buffer, err := uploadDeviceLocal(device, data, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return nil, errors.Wrap(err, "creating model vertex buffer")
	}
	return &Model{
		vertexBuffer: buffer,
		vertexCount:  vertexCount,
	}, nil
}

func (m *Model) Bind(cb *CommandBuffer) {
	vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{m.vertexBuffer.Handle}, []vk.DeviceSize{0})
}

func (m *Model) Draw(cb *CommandBuffer) {
	vk.CmdDraw(cb.Handle, m.vertexCount, 1, 0, 0)
}

func (m *Model) VertexCount() uint32 {
	return m.vertexCount
}

func (m *Model) Destroy() {
	if m.vertexBuffer != nil {
		m.vertexBuffer.Destroy()
		m.vertexBuffer = nil
	}
}
