package transcript

// raw_types.go : structures "brutes" telles qu'on les reçoit du service de
// transcription ou d'un fichier JSON déposé par l'utilisateur. Deux formes
// sont reconnues, essayées dans un ordre fixe (voir parse.go) :
//
//  1. objet racine indexé par code langue, chaque langue portant un tableau
//     plat `words` (timestamps par mot, en millisecondes) ;
//  2. tableau plat `segments` (ou `results.segments`) sans étiquette de
//     langue, timestamps en millisecondes, champs start/end éventuellement
//     nommés start_time/end_time.

// rawWord : un mot horodaté (millisecondes).
type rawWord struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// rawLanguageBlock : bloc d'une langue dans la forme (1).
type rawLanguageBlock struct {
	Words []rawWord `json:"words"`
}

// rawFlatSegment : segment de la forme (2). Les timestamps peuvent arriver
// sous deux noms ; les pointeurs distinguent "absent" de "zéro".
type rawFlatSegment struct {
	Text      string   `json:"text"`
	Start     *float64 `json:"start,omitempty"`
	End       *float64 `json:"end,omitempty"`
	StartTime *float64 `json:"start_time,omitempty"`
	EndTime   *float64 `json:"end_time,omitempty"`
}

// startMs retourne le début en millisecondes (start prioritaire sur start_time, 0 sinon).
func (s rawFlatSegment) startMs() float64 {
	if s.Start != nil && *s.Start != 0 {
		return *s.Start
	}
	if s.StartTime != nil {
		return *s.StartTime
	}
	if s.Start != nil {
		return *s.Start
	}
	return 0
}

// endMs retourne la fin en millisecondes (même priorité que startMs).
func (s rawFlatSegment) endMs() float64 {
	if s.End != nil && *s.End != 0 {
		return *s.End
	}
	if s.EndTime != nil {
		return *s.EndTime
	}
	if s.End != nil {
		return *s.End
	}
	return 0
}

// rawFlatDocument : enveloppe de la forme (2).
type rawFlatDocument struct {
	Segments []rawFlatSegment `json:"segments"`
	Results  struct {
		Segments []rawFlatSegment `json:"segments"`
	} `json:"results"`
}

// flatSegments retourne le tableau effectif (segments prioritaire sur results.segments).
func (d rawFlatDocument) flatSegments() []rawFlatSegment {
	if len(d.Segments) > 0 {
		return d.Segments
	}
	return d.Results.Segments
}
