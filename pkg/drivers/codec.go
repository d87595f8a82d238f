package drivers

import (
	"fmt"
	"io"
	"reflect"

	"github.com/bytedance/sonic"
	"github.com/ugorji/go/codec"
)

type jsonDriver struct{}

func (jsonDriver) Save(obj any, w io.Writer) error {
	data, err := sonic.Marshal(obj)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	_, err = w.Write(data)

	return err
}

func (jsonDriver) Load(r io.Reader) (any, error) {
	var v any
	if err := sonic.ConfigDefault.NewDecoder(r).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	return v, nil
}

// msgpackDriver 任意对象的二进制序列化（joblib 类型）.
type msgpackDriver struct{}

func msgpackHandle() *codec.MsgpackHandle {
	var mh codec.MsgpackHandle

	mh.WriteExt = true
	mh.RawToString = true
	mh.MapType = reflect.TypeOf(map[string]any(nil))

	return &mh
}

func (msgpackDriver) Save(obj any, w io.Writer) error {
	if err := codec.NewEncoder(w, msgpackHandle()).Encode(obj); err != nil {
		return fmt.Errorf("encode msgpack: %w", err)
	}

	return nil
}

func (msgpackDriver) Load(r io.Reader) (any, error) {
	var v any
	if err := codec.NewDecoder(r, msgpackHandle()).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode msgpack: %w", err)
	}

	return v, nil
}
