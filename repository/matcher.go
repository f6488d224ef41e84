package repository

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Match reports whether doc satisfies filter using MongoDB query semantics for
// the operator subset the catalog emits: implicit equality, $and, $or, $nor,
// $eq, $ne, $in, $nin, $exists, $regex/$options, $gt, $gte, $lt, $lte.
//
// Stores without a native ObjectID type keep ids as hex strings, so equality
// treats an ObjectID and its hex form as the same value.
func Match(doc bson.M, filter bson.M) (bool, error) {
	for key, cond := range filter {
		ok, err := matchKey(doc, key, cond)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchKey(doc bson.M, key string, cond interface{}) (bool, error) {
	switch key {
	case "$and", "$or", "$nor":
		clauses, err := clauseList(key, cond)
		if err != nil {
			return false, err
		}
		matched := 0
		for _, clause := range clauses {
			ok, err := Match(doc, clause)
			if err != nil {
				return false, err
			}
			if ok {
				matched++
			}
		}
		switch key {
		case "$and":
			return matched == len(clauses), nil
		case "$or":
			return matched > 0, nil
		default:
			return matched == 0, nil
		}
	}
	if strings.HasPrefix(key, "$") {
		return false, fmt.Errorf("unsupported top-level operator %s", key)
	}
	value, found := lookup(doc, key)
	return matchField(value, found, cond)
}

func clauseList(op string, v interface{}) ([]bson.M, error) {
	items, ok := asSlice(v)
	if !ok {
		return nil, fmt.Errorf("%s expects an array, got %T", op, v)
	}
	clauses := make([]bson.M, 0, len(items))
	for _, item := range items {
		d, ok := asDoc(item)
		if !ok {
			return nil, fmt.Errorf("%s expects documents, got %T", op, item)
		}
		clauses = append(clauses, d)
	}
	return clauses, nil
}

func matchField(value interface{}, found bool, cond interface{}) (bool, error) {
	if ops, ok := operatorDoc(cond); ok {
		for op, arg := range ops {
			ok, err := matchOperator(value, found, op, arg, ops)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
	if re, ok := cond.(primitive.Regex); ok {
		return matchRegex(value, found, re.Pattern, re.Options)
	}
	return matchEquality(value, found, cond), nil
}

func matchOperator(value interface{}, found bool, op string, arg interface{}, ops bson.M) (bool, error) {
	switch op {
	case "$eq":
		return matchEquality(value, found, arg), nil
	case "$ne":
		return !matchEquality(value, found, arg), nil
	case "$in", "$nin":
		items, ok := asSlice(arg)
		if !ok {
			return false, fmt.Errorf("%s expects an array, got %T", op, arg)
		}
		in := false
		for _, item := range items {
			if re, ok := item.(primitive.Regex); ok {
				hit, err := matchRegex(value, found, re.Pattern, re.Options)
				if err != nil {
					return false, err
				}
				in = hit
			} else {
				in = matchEquality(value, found, item)
			}
			if in {
				break
			}
		}
		if op == "$nin" {
			return !in, nil
		}
		return in, nil
	case "$exists":
		want, _ := arg.(bool)
		return found == want, nil
	case "$regex":
		pattern, options := "", ""
		switch p := arg.(type) {
		case string:
			pattern = p
		case primitive.Regex:
			pattern, options = p.Pattern, p.Options
		default:
			return false, fmt.Errorf("$regex expects a string, got %T", arg)
		}
		if o, ok := ops["$options"].(string); ok {
			options = o
		}
		return matchRegex(value, found, pattern, options)
	case "$options":
		return true, nil
	case "$gt", "$gte", "$lt", "$lte":
		if !found {
			return false, nil
		}
		return anyElement(value, func(v interface{}) bool {
			c, ok := compare(v, arg)
			if !ok {
				return false
			}
			switch op {
			case "$gt":
				return c > 0
			case "$gte":
				return c >= 0
			case "$lt":
				return c < 0
			default:
				return c <= 0
			}
		}), nil
	}
	return false, fmt.Errorf("unsupported operator %s", op)
}

func matchEquality(value interface{}, found bool, want interface{}) bool {
	if !found {
		return want == nil
	}
	if equal(value, want) {
		return true
	}
	if _, isList := asSlice(value); isList {
		return anyElement(value, func(v interface{}) bool { return equal(v, want) })
	}
	return false
}

func matchRegex(value interface{}, found bool, pattern, options string) (bool, error) {
	if !found {
		return false, nil
	}
	re, err := compileRegex(pattern, options)
	if err != nil {
		return false, err
	}
	return anyElement(value, func(v interface{}) bool {
		s, ok := v.(string)
		return ok && re.MatchString(s)
	}), nil
}

func compileRegex(pattern, options string) (*regexp.Regexp, error) {
	flags := ""
	for _, f := range []string{"i", "m", "s"} {
		if strings.Contains(options, f) {
			flags += f
		}
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid $regex %q: %w", pattern, err)
	}
	return re, nil
}

// anyElement applies fn to value, or to each element when value is an array.
func anyElement(value interface{}, fn func(interface{}) bool) bool {
	if items, ok := asSlice(value); ok {
		for _, item := range items {
			if fn(item) {
				return true
			}
		}
		return false
	}
	return fn(value)
}

func lookup(doc bson.M, path string) (interface{}, bool) {
	var cur interface{} = doc
	for _, part := range strings.Split(path, ".") {
		d, ok := asDoc(cur)
		if !ok {
			return nil, false
		}
		cur, ok = d[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func operatorDoc(v interface{}) (bson.M, bool) {
	d, ok := asDoc(v)
	if !ok || len(d) == 0 {
		return nil, false
	}
	for k := range d {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return d, true
}

func asDoc(v interface{}) (bson.M, bool) {
	switch d := v.(type) {
	case bson.M:
		return d, true
	case map[string]interface{}:
		return bson.M(d), true
	case bson.D:
		m := make(bson.M, len(d))
		for _, e := range d {
			m[e.Key] = e.Value
		}
		return m, true
	}
	return nil, false
}

func asSlice(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case bson.A:
		return s, true
	case []interface{}:
		return s, true
	case nil, string, []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	// ObjectID is a [12]byte array, not a list.
	if _, isOID := v.(primitive.ObjectID); isOID {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case *primitive.ObjectID:
		if t == nil {
			return nil
		}
		return t.Hex()
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	}
	return v
}

func equal(a, b interface{}) bool {
	na, nb := normalize(a), normalize(b)
	if ta, ok := na.(time.Time); ok {
		tb, ok := nb.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(na, nb)
}

func compare(a, b interface{}) (int, bool) {
	na, nb := normalize(a), normalize(b)
	switch x := na.(type) {
	case float64:
		y, ok := nb.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := nb.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case time.Time:
		y, ok := nb.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	}
	return 0, false
}
