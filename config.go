package dissyslab

/*
   Copyright 2018 Bruno Moura <brunotm@gmail.com>

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Config is the read-only configuration subtree handed to a block through
// BlockContext.Config(). RunPlan slices one Config per leaf out of the tree
// passed to Execute/RunPlan, keyed by the block's fully-qualified path, so a
// block reads only its own tunables (e.g. "retry.max", "buffer.capacity")
// rather than the whole plan's configuration. Items are addressed by a dot
// separated path: "a.nest.key" walks nested map[string]interface{} levels.
type Config struct {
	data interface{}
}

// NewConfig wraps an existing map[string]interface{} as a Config tree, or
// returns an empty Config if data is nil.
func NewConfig(data map[string]interface{}) (c Config) {
	if data == nil {
		data = make(map[string]interface{})
	}
	c.data = data
	return c
}

// IsSet returns true if path resolves to a present value. path may be given
// as a single dot separated string or as a varidic list of keys.
func (c Config) IsSet(path ...string) (ok bool) {
	if len(path) == 1 {
		path = strings.Split(path[0], ".")
	}
	return search(c.data, path) != nil
}

// Get returns the Config subtree rooted at path. path may be given as a
// single dot separated string or as a varidic list of keys.
func (c Config) Get(path ...string) (config Config) {
	if len(path) == 1 {
		path = strings.Split(path[0], ".")
	}
	return Config{search(c.data, path)}
}

// String returns the string value of the current Config item, or def if the
// item is unset or does not cast to a string.
func (c Config) String(def string) (value string) {
	if c.data == nil {
		return def
	}
	if value, err := cast.ToStringE(c.data); err == nil {
		return value
	}
	return def
}

// Bool returns the bool value of the current Config item, or def if the item
// is unset or does not cast to a bool.
func (c Config) Bool(def bool) (value bool) {
	if c.data == nil {
		return def
	}
	if value, err := cast.ToBoolE(c.data); err == nil {
		return value
	}
	return def
}

// Duration returns the time.Duration value of the current Config item, or
// def if the item is unset or does not cast to a duration.
func (c Config) Duration(def time.Duration) (value time.Duration) {
	if c.data == nil {
		return def
	}
	if value, err := cast.ToDurationE(c.data); err == nil {
		return value
	}
	return def
}

// Time returns the time.Time value of the current Config item, or def if the
// item is unset or does not cast to a time.Time.
func (c Config) Time(def time.Time) (value time.Time) {
	if c.data == nil {
		return def
	}
	if value, err := cast.ToTimeE(c.data); err == nil {
		return value
	}
	return def
}

// Float64 returns the float64 value of the current Config item, or def if
// the item is unset or does not cast to a float64.
func (c Config) Float64(def float64) (value float64) {
	if c.data == nil {
		return def
	}
	if value, err := cast.ToFloat64E(c.data); err == nil {
		return value
	}
	return def
}

// Int returns the int value of the current Config item, or def if the item
// is unset or does not cast to an int.
func (c Config) Int(def int) (value int) {
	if c.data == nil {
		return def
	}
	if value, err := cast.ToIntE(c.data); err == nil {
		return value
	}
	return def
}

// Int64 returns the int64 value of the current Config item, or def if the
// item is unset or does not cast to an int64.
func (c Config) Int64(def int64) (value int64) {
	if c.data == nil {
		return def
	}
	if value, err := cast.ToInt64E(c.data); err == nil {
		return value
	}
	return def
}

// Uint returns the uint value of the current Config item, or def if the item
// is unset or does not cast to a uint.
func (c Config) Uint(def uint) (value uint) {
	if c.data == nil {
		return def
	}
	if value, err := cast.ToUintE(c.data); err == nil {
		return value
	}
	return def
}

// Uint64 returns the uint64 value of the current Config item, or def if the
// item is unset or does not cast to a uint64.
func (c Config) Uint64(def uint64) (value uint64) {
	if c.data == nil {
		return def
	}
	if value, err := cast.ToUint64E(c.data); err == nil {
		return value
	}
	return def
}

// search walks source through path, one nested map[string]interface{} level
// per key, returning nil as soon as a key is missing. The dataflow runtime's
// per-block tunables never need array-indexed paths, so unlike the teacher's
// version this does not special-case []interface{} elements.
func search(source interface{}, path []string) (data interface{}) {
	data = source
	for _, key := range path {
		m, ok := data.(map[string]interface{})
		if !ok {
			return nil
		}
		if data, ok = m[key]; !ok {
			return nil
		}
	}
	return data
}
