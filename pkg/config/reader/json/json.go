package json

import (
	"errors"
	"os"
	"regexp"
	"time"

	"dario.cat/mergo"

	"github.com/ninja0404/sol-trader/pkg/config/encoder"
	"github.com/ninja0404/sol-trader/pkg/config/reader"
	"github.com/ninja0404/sol-trader/pkg/config/source"
)

type jsonReader struct {
	opts reader.Options
	json encoder.Encoder
}

// NewReader 创建json reader, 所有配置源快照最终合并为一棵json配置树
func NewReader(opts ...reader.Option) reader.Reader {
	options := reader.NewOptions(opts...)
	return &jsonReader{
		json: options.Encoding["json"],
		opts: options,
	}
}

func (j *jsonReader) Merge(changes ...*source.ChangeSet) (*source.ChangeSet, error) {
	var merged map[string]interface{}

	for _, m := range changes {
		if m == nil {
			continue
		}

		if len(m.Data) == 0 {
			continue
		}

		codec, ok := j.opts.Encoding[m.Format]
		if !ok {
			// 默认按json解析
			codec = j.json
		}

		var data map[string]interface{}
		if err := codec.Decode(m.Data, &data); err != nil {
			return nil, err
		}
		if err := mergo.Map(&merged, data, mergo.WithOverride); err != nil {
			return nil, err
		}
	}

	b, err := j.json.Encode(merged)
	if err != nil {
		return nil, err
	}

	cs := &source.ChangeSet{
		Timestamp: time.Now(),
		Data:      b,
		Source:    "json",
		Format:    j.json.String(),
	}
	cs.Checksum = cs.Sum()

	return cs, nil
}

func (j *jsonReader) Values(ch *source.ChangeSet) (reader.Values, error) {
	if ch == nil {
		return nil, errors.New("changeset is nil")
	}
	if ch.Format != "json" {
		return nil, errors.New("unsupported format")
	}
	return newValues(ch)
}

func (j *jsonReader) String() string {
	return "json"
}

// ReplaceEnvVars 将配置数据中的 ${VAR} 占位符替换为环境变量取值
func ReplaceEnvVars(raw []byte) ([]byte, error) {
	re := regexp.MustCompile(`\$\{([A-Za-z0-9_]+)\}`)
	if !re.Match(raw) {
		return raw, nil
	}
	replaced := re.ReplaceAllFunc(raw, func(m []byte) []byte {
		name := re.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
	return replaced, nil
}
