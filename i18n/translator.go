package i18n

import "sync"

// Translator retrieves localized messages for error codes.
// data provides optional metadata to embed in the message (for example,
// "expected" or "key").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	switch t.lang {
	case "ja":
		switch code {
		case "wrong_type":
			return "型が不正です"
		case "bad_format":
			return "書式が不正です"
		case "not_mapping":
			return "オブジェクトが必要です"
		case "not_iterable":
			return "配列が必要です"
		case "no_target_id":
			return "関連先にIDがないため保存できません"
		case "read_only":
			return "は読み取り専用です"
		case "unresolved_name":
			return "は定義されていません"
		case "not_implemented":
			return "未実装です"
		case "self_reference":
			return "自己参照している構造です"
		case "index_out_of_range":
			return "インデックスが範囲外です"
		case "wrong_resource":
			return "このリポジトリのリソースではありません"
		}
	default: // "en"
		switch code {
		case "wrong_type":
			return "Wrong type"
		case "bad_format":
			return "Bad format"
		case "not_mapping":
			return "expected a mapping"
		case "not_iterable":
			return "expected an iterable"
		case "no_target_id":
			return "can't save relation, target has no id"
		case "read_only":
			return "is read-only"
		case "unresolved_name":
			return "is not defined"
		case "not_implemented":
			return "not implemented"
		case "self_reference":
			return "self-referencing structure"
		case "index_out_of_range":
			return "index out of range"
		case "wrong_resource":
			return "resource does not belong to this repository"
		}
	}
	return code
}

var (
	mu                           = sync.RWMutex{}
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	mu.Lock()
	currentTranslator = dictTranslator{lang: lang}
	mu.Unlock()
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	mu.Lock()
	currentTranslator = tr
	mu.Unlock()
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
