package service

import "github.com/examportal/exam-portal-api/internal/models"

// builtinExams returns the exam catalog compiled into the binary. Listing
// entries advertise the official paper length; only the two most recent
// papers ship with authored questions, older entries present an empty
// attempt until an admin imports their question sets.
func builtinExams() []models.Exam {
	return []models.Exam{
		{
			ID:             "math-2024",
			Year:           2024,
			Subject:        "Mathematics",
			Status:         models.ExamStatusAvailable,
			TotalQuestions: 50,
			Questions:      mathematics2024Questions(),
		},
		{
			ID:             "math-2023",
			Year:           2023,
			Subject:        "Mathematics",
			Status:         models.ExamStatusAvailable,
			TotalQuestions: 50,
			Questions:      mathematics2023Questions(),
		},
		{ID: "math-2022", Year: 2022, Subject: "Mathematics", Status: models.ExamStatusAvailable, TotalQuestions: 50},
		{ID: "math-2021", Year: 2021, Subject: "Mathematics", Status: models.ExamStatusAvailable, TotalQuestions: 50},
		{ID: "math-2020", Year: 2020, Subject: "Mathematics", Status: models.ExamStatusAvailable, TotalQuestions: 50},
		{ID: "math-2019", Year: 2019, Subject: "Mathematics", Status: models.ExamStatusAvailable, TotalQuestions: 50},
	}
}

func mathematics2024Questions() models.QuestionList {
	return models.QuestionList{
		{
			ID:   "m24-q1",
			Text: "What is the value of 7 × 8?",
			Options: []models.Option{
				{ID: "a", Text: "54"},
				{ID: "b", Text: "56"},
				{ID: "c", Text: "58"},
				{ID: "d", Text: "64"},
			},
			CorrectAnswer: "b",
			Explanation:   "7 × 8 = 56.",
		},
		{
			ID:   "m24-q2",
			Text: "Solve for x: 2x + 6 = 14.",
			Options: []models.Option{
				{ID: "a", Text: "2"},
				{ID: "b", Text: "3"},
				{ID: "c", Text: "4"},
				{ID: "d", Text: "5"},
			},
			CorrectAnswer: "c",
			Explanation:   "2x = 14 - 6 = 8, so x = 4.",
		},
		{
			ID:   "m24-q3",
			Text: "What is the area of a rectangle with sides 6 cm and 9 cm?",
			Options: []models.Option{
				{ID: "a", Text: "15 cm²"},
				{ID: "b", Text: "30 cm²"},
				{ID: "c", Text: "54 cm²"},
				{ID: "d", Text: "60 cm²"},
			},
			CorrectAnswer: "c",
			Explanation:   "Area = length × width = 6 × 9 = 54 cm².",
		},
		{
			ID:   "m24-q4",
			Text: "Which fraction is equivalent to 0.75?",
			Options: []models.Option{
				{ID: "a", Text: "2/3"},
				{ID: "b", Text: "3/4"},
				{ID: "c", Text: "4/5"},
				{ID: "d", Text: "7/8"},
			},
			CorrectAnswer: "b",
			Explanation:   "0.75 = 75/100 = 3/4.",
		},
		{
			ID:   "m24-q5",
			Text: "What is the next number in the sequence 2, 6, 18, 54, ...?",
			Options: []models.Option{
				{ID: "a", Text: "108"},
				{ID: "b", Text: "126"},
				{ID: "c", Text: "148"},
				{ID: "d", Text: "162"},
			},
			CorrectAnswer: "d",
			Explanation:   "Each term is multiplied by 3; 54 × 3 = 162.",
		},
	}
}

func mathematics2023Questions() models.QuestionList {
	return models.QuestionList{
		{
			ID:   "m23-q1",
			Text: "What is 15% of 200?",
			Options: []models.Option{
				{ID: "a", Text: "20"},
				{ID: "b", Text: "25"},
				{ID: "c", Text: "30"},
				{ID: "d", Text: "35"},
			},
			CorrectAnswer: "c",
			Explanation:   "15% of 200 = 0.15 × 200 = 30.",
		},
		{
			ID:   "m23-q2",
			Text: "A triangle has angles of 65° and 45°. What is the third angle?",
			Options: []models.Option{
				{ID: "a", Text: "60°"},
				{ID: "b", Text: "70°"},
				{ID: "c", Text: "80°"},
				{ID: "d", Text: "90°"},
			},
			CorrectAnswer: "b",
			Explanation:   "Angles of a triangle sum to 180°; 180 - 65 - 45 = 70°.",
		},
		{
			ID:   "m23-q3",
			Text: "What is the square root of 144?",
			Options: []models.Option{
				{ID: "a", Text: "10"},
				{ID: "b", Text: "11"},
				{ID: "c", Text: "12"},
				{ID: "d", Text: "14"},
			},
			CorrectAnswer: "c",
			Explanation:   "12 × 12 = 144.",
		},
		{
			ID:   "m23-q4",
			Text: "If a car travels 240 km in 3 hours, what is its average speed?",
			Options: []models.Option{
				{ID: "a", Text: "60 km/h"},
				{ID: "b", Text: "70 km/h"},
				{ID: "c", Text: "80 km/h"},
				{ID: "d", Text: "90 km/h"},
			},
			CorrectAnswer: "c",
			Explanation:   "Speed = distance / time = 240 / 3 = 80 km/h.",
		},
	}
}
