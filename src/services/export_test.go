package services

import "time"

func (s *TaskService) SetIDSource(f func() string) { s.newID = f }

func (s *TaskService) SetClock(f func() time.Time) { s.now = f }
