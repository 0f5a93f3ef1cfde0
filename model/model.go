// Package model owns the selectable model catalog and the loader that
// prepares a model before the coordinator marks it active.
package model

// Info describes one selectable model identifier. Remote names map the
// identifier onto what each API provider actually serves; URL and Size
// describe the ggml weights for local whisper.cpp.
type Info struct {
	ID     string
	Groq   string
	OpenAI string
	URL    string
	Size   int64
}

const ggmlBase = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// The API providers do not serve size-tiered whisper; small identifiers map
// onto their fast tier and big ones onto their accurate tier.
var catalog = []Info{
	{"tiny", "whisper-large-v3-turbo", "whisper-1", ggmlBase + "/ggml-tiny.bin", 75 * 1024 * 1024},
	{"base", "whisper-large-v3-turbo", "whisper-1", ggmlBase + "/ggml-base.bin", 150 * 1024 * 1024},
	{"small", "whisper-large-v3-turbo", "whisper-1", ggmlBase + "/ggml-small.bin", 500 * 1024 * 1024},
	{"medium", "whisper-large-v3", "whisper-1", ggmlBase + "/ggml-medium.bin", 1500 * 1024 * 1024},
	{"large", "whisper-large-v3", "whisper-1", ggmlBase + "/ggml-large-v3.bin", 3000 * 1024 * 1024},
}

func Lookup(id string) (Info, bool) {
	for _, info := range catalog {
		if info.ID == id {
			return info, true
		}
	}
	return Info{}, false
}

func IDs() []string {
	ids := make([]string, len(catalog))
	for i, info := range catalog {
		ids[i] = info.ID
	}
	return ids
}

// RemoteName resolves the identifier for an API provider; empty when the
// provider does not serve it.
func (i Info) RemoteName(provider string) string {
	switch provider {
	case "groq":
		return i.Groq
	case "openai":
		return i.OpenAI
	}
	return ""
}
