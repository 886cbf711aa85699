package curriculum

// Document is one curriculum YAML file. A document may declare tokens,
// curriculum content, or both.
type Document struct {
	Tokens     []TokenDoc     `yaml:"tokens" json:"tokens,omitempty"`
	YearLevels []YearLevelDoc `yaml:"year_levels" json:"year_levels,omitempty"`
}

type TokenDoc struct {
	ID            string   `yaml:"id" json:"id"`
	Name          string   `yaml:"name" json:"name,omitempty"`
	Description   string   `yaml:"description" json:"description,omitempty"`
	Prerequisites []string `yaml:"prerequisites" json:"prerequisites,omitempty"`
}

type YearLevelDoc struct {
	YearLevel int          `yaml:"year_level" json:"year_level"`
	Subjects  []SubjectDoc `yaml:"subjects" json:"subjects"`
}

type SubjectDoc struct {
	ID      string      `yaml:"id" json:"id"`
	Strands []StrandDoc `yaml:"strands" json:"strands"`
}

type StrandDoc struct {
	ID       string       `yaml:"id" json:"id"`
	Title    string       `yaml:"title" json:"title,omitempty"`
	Chapters []ChapterDoc `yaml:"chapters" json:"chapters"`
}

type ChapterDoc struct {
	ID       string       `yaml:"id" json:"id"`
	Title    string       `yaml:"title" json:"title,omitempty"`
	Sections []SectionDoc `yaml:"sections" json:"sections"`
}

type SectionDoc struct {
	ID        string        `yaml:"id" json:"id"`
	Title     string        `yaml:"title" json:"title"`
	Questions []QuestionDoc `yaml:"questions" json:"questions"`
}

type QuestionDoc struct {
	ID            string      `yaml:"id" json:"id"`
	Text          string      `yaml:"text" json:"text,omitempty"`
	Difficulty    int         `yaml:"difficulty" json:"difficulty"`
	CorrectOption int         `yaml:"correct_option" json:"correct_option"`
	CorrectToken  string      `yaml:"correct_token" json:"correct_token"`
	Options       []OptionDoc `yaml:"options" json:"options"`
}

// OptionDoc is a tagged answer option. Token is empty when the option carries
// no misconception signal.
type OptionDoc struct {
	Text  string `yaml:"text" json:"text"`
	Token string `yaml:"token,omitempty" json:"token,omitempty"`
}
